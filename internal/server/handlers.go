package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/scormkit/scormkit/internal/scormerr"
)

// processRequest is the body of POST /api/packages.
type processRequest struct {
	URL      string `json:"url"`
	CourseID string `json:"courseId"`
}

// errorResponse is the wire form of an ExtractionError. Error-reporting
// UIs render code and details directly to content publishers, so nothing
// here is generic.
type errorResponse struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details,omitempty"`
	Diagnostics any            `json:"diagnostics,omitempty"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "request body must be JSON with url and courseId fields", http.StatusBadRequest)
		return
	}
	if req.URL == "" || req.CourseID == "" {
		http.Error(w, "url and courseId must both be set", http.StatusBadRequest)
		return
	}

	info, err := s.engine.ProcessPackage(r.Context(), req.URL, req.CourseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleItemLaunch(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("courseId")
	locator := r.URL.Query().Get("url")
	orgID := r.URL.Query().Get("org")
	itemID := r.URL.Query().Get("item")

	if locator == "" || orgID == "" || itemID == "" {
		http.Error(w, "url, org and item query parameters must all be set", http.StatusBadRequest)
		return
	}

	launchURL, err := s.engine.GetItemLaunchURL(r.Context(), locator, courseID, orgID, itemID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"launchUrl": launchURL})
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("courseId")
	locator := r.URL.Query().Get("url")

	var removed int
	if locator == "" {
		removed = s.engine.InvalidateCourse(courseID)
	} else if s.engine.Invalidate(locator, courseID) {
		removed = 1
	}

	s.writeJSON(w, http.StatusOK, map[string]int{"invalidated": removed})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cache":  s.engine.Stats(),
	})
}

// handleContent serves extracted files from the workspace. net/http has
// already percent-decoded the path segments; the remaining job is keeping
// the request inside the course's own workspace directory.
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("courseId")
	contentPath := r.PathValue("contentPath")

	if strings.ContainsAny(courseID, "/\\") || courseID == ".." {
		http.NotFound(w, r)
		return
	}

	cleaned := filepath.Clean(filepath.FromSlash(contentPath))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		http.NotFound(w, r)
		return
	}

	fullPath := filepath.Join(s.workspaceDir, courseID, cleaned)
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, fullPath)
}

// writeError maps an engine error onto an HTTP status and the structured
// error payload external error-reporting UIs depend on.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ee *scormerr.ExtractionError
	status := http.StatusInternalServerError
	body := errorResponse{Code: "internal", Message: err.Error()}

	if e, ok := asExtractionError(err); ok {
		ee = e
		body = errorResponse{
			Code:    string(ee.Code),
			Message: ee.Message,
			Details: ee.Details,
		}
		if ee.Diagnostics != nil {
			body.Diagnostics = ee.Diagnostics
		}
		status = statusForCode(ee.Code)
	}

	s.logger.Warn(r.Context(), err, "request failed",
		"method", r.Method, "path", r.URL.Path, "status", status)
	s.writeJSON(w, status, body)
}

func asExtractionError(err error) (*scormerr.ExtractionError, bool) {
	var ee *scormerr.ExtractionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

func statusForCode(code scormerr.Code) int {
	switch code {
	case scormerr.CodeDownloadFailed:
		return http.StatusBadGateway
	case scormerr.CodePackageNotFound, scormerr.CodeItemNotFound:
		return http.StatusNotFound
	case scormerr.CodeArchiveInvalid,
		scormerr.CodeManifestNotFound,
		scormerr.CodeManifestUnreadable,
		scormerr.CodeNoOrganizations,
		scormerr.CodeLaunchFileNotFound,
		scormerr.CodeNoLaunchableItems:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
