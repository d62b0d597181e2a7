// Package scormerr defines the structured error type every fatal engine
// failure is wrapped into before it crosses the engine boundary.
//
// Errors carry a machine-readable code, a human-readable message, a details
// payload (attempted paths, directory listings) and the diagnostics
// accumulated up to the point of failure, so a failed extraction is still
// maximally informative to the content publisher reading it.
package scormerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scormkit/scormkit/internal/types"
)

// Code categorizes extraction failures for callers that branch on failure
// kind (error-reporting UIs, retry policies).
type Code string

const (
	CodeDownloadFailed     Code = "download-failed"
	CodeWorkspaceFailed    Code = "workspace-failed"
	CodeArchiveInvalid     Code = "archive-invalid"
	CodeManifestNotFound   Code = "manifest-not-found"
	CodeManifestUnreadable Code = "manifest-unreadable"
	CodeNoOrganizations    Code = "no-organizations"
	CodeLaunchFileNotFound Code = "launch-file-not-found"
	CodeNoLaunchableItems  Code = "no-launchable-items"
	CodePackageNotFound    Code = "package-not-found"
	CodeItemNotFound       Code = "item-not-found"
)

// ExtractionError is the single error type the engine returns for fatal
// failures. Details keys in use: "locator", "courseId", "workspace",
// "attemptedHref", "probedDirectory", "packageRoot", "availableFiles".
type ExtractionError struct {
	Code        Code
	Message     string
	Details     map[string]any
	Diagnostics *types.Diagnostics
	Cause       error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	parts = append(parts, e.Message)
	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Is matches on code, so callers can compare against a bare New(code, "").
func (e *ExtractionError) Is(target error) bool {
	var t *ExtractionError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetail attaches one details entry and returns the error for chaining.
func (e *ExtractionError) WithDetail(key string, value any) *ExtractionError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithDiagnostics attaches the diagnostics accumulated so far.
func (e *ExtractionError) WithDiagnostics(d *types.Diagnostics) *ExtractionError {
	e.Diagnostics = d
	return e
}

// New creates an ExtractionError with the given code and message.
func New(code Code, message string) *ExtractionError {
	return &ExtractionError{Code: code, Message: message}
}

// Wrap creates an ExtractionError with an underlying cause.
func Wrap(code Code, message string, cause error) *ExtractionError {
	return &ExtractionError{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of err when it is (or wraps) an ExtractionError,
// or the empty string otherwise.
func CodeOf(err error) Code {
	var e *ExtractionError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// DiagnosticsOf returns the diagnostics attached to err, or nil.
func DiagnosticsOf(err error) *types.Diagnostics {
	var e *ExtractionError
	if errors.As(err, &e) {
		return e.Diagnostics
	}
	return nil
}

// IsRetryable reports whether a fresh call with the same input can
// plausibly succeed. Transport and workspace failures are transient;
// everything else needs a different package.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeDownloadFailed, CodeWorkspaceFailed:
		return true
	}
	return false
}
