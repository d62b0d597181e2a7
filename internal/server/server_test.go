package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scormkit/scormkit/internal/config"
	"github.com/scormkit/scormkit/internal/engine"
	"github.com/scormkit/scormkit/internal/logging"
)

const testManifest = `<manifest>
  <organizations default="ORG1">
    <organization identifier="ORG1">
      <title>Demo Course</title>
      <item identifier="ITEM1" identifierref="RES1"><title>Start</title></item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="RES1" type="webcontent" href="story.html"/>
  </resources>
</manifest>`

// fileFetcher serves a fixed local archive for any locator.
type fileFetcher struct {
	archivePath string
}

func (f fileFetcher) Fetch(ctx context.Context, locator, destPath string) error {
	data, err := os.ReadFile(f.archivePath)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

func buildZip(t *testing.T, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "package.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func newTestServer(t *testing.T, entries map[string]string) (*Server, *engine.Engine) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.Mount = "/content"
	cfg.Workspace.Dir = t.TempDir()
	cfg.Resolver.FallbackFilenames = config.DefaultFallbackFilenames()
	cfg.Cache.MaxEntries = 16

	eng := engine.New(cfg, fileFetcher{archivePath: buildZip(t, entries)}, logging.NopLogger{})
	t.Cleanup(eng.Close)

	return New(cfg, eng, logging.NopLogger{}), eng
}

func doRequest(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleProcess_Success(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{
		"imsmanifest.xml": testManifest,
		"story.html":      "<html></html>",
	})

	rec := doRequest(t, s, http.MethodPost, "/api/packages",
		map[string]string{"url": "https://cdn/pkg.zip", "courseId": "demo-course"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "story.html", payload["launchFile"])
	assert.Equal(t, "Demo Course", payload["title"])
	assert.Equal(t, "/content/demo-course/story.html", payload["launchUrl"])
	assert.Contains(t, payload, "diagnostics")
}

func TestHandleProcess_RejectsBadRequests(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"imsmanifest.xml": testManifest})

	rec := doRequest(t, s, http.MethodPost, "/api/packages", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing body")

	rec = doRequest(t, s, http.MethodPost, "/api/packages", map[string]string{"url": "https://cdn/pkg.zip"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing courseId")
}

func TestHandleProcess_ExtractionErrorPayload(t *testing.T) {
	// No manifest anywhere in the archive.
	s, _ := newTestServer(t, map[string]string{"index.html": "<html></html>"})

	rec := doRequest(t, s, http.MethodPost, "/api/packages",
		map[string]string{"url": "https://cdn/pkg.zip", "courseId": "demo-course"})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var payload struct {
		Code        string         `json:"code"`
		Message     string         `json:"message"`
		Details     map[string]any `json:"details"`
		Diagnostics map[string]any `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "manifest-not-found", payload.Code)
	assert.Equal(t, "demo-course", payload.Details["courseId"])
	assert.NotEmpty(t, payload.Diagnostics["extractedFiles"])
}

func TestHandleItemLaunch(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{
		"imsmanifest.xml": testManifest,
		"story.html":      "<html></html>",
	})

	rec := doRequest(t, s, http.MethodGet,
		"/api/packages/demo-course/launch?url=https://cdn/pkg.zip&org=ORG1&item=ITEM1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "/content/demo-course/story.html", payload["launchUrl"])

	rec = doRequest(t, s, http.MethodGet,
		"/api/packages/demo-course/launch?url=https://cdn/pkg.zip&org=ORG1&item=NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/packages/demo-course/launch?org=ORG1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing query parameters")
}

func TestHandleInvalidate(t *testing.T) {
	s, eng := newTestServer(t, map[string]string{
		"imsmanifest.xml": testManifest,
		"story.html":      "<html></html>",
	})

	_, err := eng.ProcessPackage(context.Background(), "https://cdn/pkg.zip", "demo-course")
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodDelete, "/api/packages/demo-course", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 1, payload["invalidated"])

	rec = doRequest(t, s, http.MethodDelete, "/api/packages/demo-course", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 0, payload["invalidated"], "nothing left to invalidate")
}

func TestHandleContent_ServesEncodedNames(t *testing.T) {
	s, eng := newTestServer(t, map[string]string{
		"imsmanifest.xml":          testManifest,
		"story.html":               "<html></html>",
		"assets/my notes file.txt": "hello",
	})

	_, err := eng.ProcessPackage(context.Background(), "https://cdn/pkg.zip", "demo-course")
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/content/demo-course/assets/my%20notes%20file.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestHandleContent_RejectsTraversal(t *testing.T) {
	s, eng := newTestServer(t, map[string]string{
		"imsmanifest.xml": testManifest,
		"story.html":      "<html></html>",
	})

	_, err := eng.ProcessPackage(context.Background(), "https://cdn/pkg.zip", "demo-course")
	require.NoError(t, err)

	// Plant a file outside the course workspace that a traversal would reach.
	secret := filepath.Join(eng.WorkspaceDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("nope"), 0o644))

	rec := doRequest(t, s, http.MethodGet, "/content/demo-course/%2e%2e/secret.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleContent_UnknownFile(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"imsmanifest.xml": testManifest})

	rec := doRequest(t, s, http.MethodGet, "/content/demo-course/missing.html", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"imsmanifest.xml": testManifest})

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload["status"])
	assert.Contains(t, payload, "cache")
}
