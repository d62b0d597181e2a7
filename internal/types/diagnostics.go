package types

import "fmt"

// Diagnostics accumulates everything observed during one extraction attempt.
// It is mutated only while that attempt runs, then embedded read-only into
// the result (or into the terminal error, when the attempt fails).
//
// Callers render these fields directly to content publishers, so entries are
// written to be specific: which file, which directory, what was found.
type Diagnostics struct {
	ExtractedFiles      []string `json:"extractedFiles"`
	ManifestLocation    string   `json:"manifestLocation,omitempty"`
	PackageRootLocation string   `json:"packageRootLocation,omitempty"`
	ResourcesFound      int      `json:"resourcesFound"`
	OrganizationsFound  int      `json:"organizationsFound"`
	ItemsFound          int      `json:"itemsFound"`
	Warnings            []string `json:"warnings"`
	Errors              []string `json:"errors"`
}

// NewDiagnostics returns an empty accumulator with non-nil slices so JSON
// output always shows arrays rather than null.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		ExtractedFiles: []string{},
		Warnings:       []string{},
		Errors:         []string{},
	}
}

// Warnf records a formatted warning.
func (d *Diagnostics) Warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// Errorf records a formatted error. Recording an error does not abort
// anything by itself; fatal conditions are signalled by returning an error.
func (d *Diagnostics) Errorf(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}
