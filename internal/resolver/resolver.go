// Package resolver turns declared manifest hrefs into verified, servable
// paths and public launch URLs.
//
// Packaging tools routinely declare hrefs that do not match what they put
// in the archive, so resolution tolerates mismatches through an ordered
// fallback-filename probe and, when everything fails, reports what actually
// is in the probed directory; that listing is usually all a publisher
// needs to fix their package.
package resolver

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scormkit/scormkit/internal/scormerr"
	"github.com/scormkit/scormkit/internal/types"
)

// maxListedFiles caps the directory listing embedded in failure details so
// error payloads stay readable.
const maxListedFiles = 20

// Resolver verifies launch files under a package root and builds their
// public URLs.
type Resolver struct {
	// mount is the public URL prefix, e.g. "/content".
	mount string
	// fallbacks is the ordered list of conventional launch filenames
	// probed when the declared href is missing. First match wins.
	fallbacks []string
}

// New creates a Resolver serving under mount with the given fallback
// filename list.
func New(mount string, fallbacks []string) *Resolver {
	return &Resolver{mount: mount, fallbacks: fallbacks}
}

// Resolve verifies href against packageRoot and returns the servable path,
// slash-separated and relative to the package root.
//
// The declared href is tried exactly first. When it is missing, the
// fallback filenames are probed in the href's own directory; a successful
// substitution is recorded as a warning naming both files. When nothing
// matches, the error carries the attempted href, the probed directory, and
// a capped listing of what is present there.
func (r *Resolver) Resolve(packageRoot, href string, diag *types.Diagnostics) (string, error) {
	declared := cleanHref(href)
	if declared != "" {
		candidate := filepath.Join(packageRoot, filepath.FromSlash(declared))
		if isFile(candidate) {
			return declared, nil
		}
	}

	dir := path.Dir(declared)
	if declared == "" || dir == "." {
		dir = ""
	}

	for _, name := range r.fallbacks {
		rel := path.Join(dir, name)
		if dir == "" {
			rel = name
		}
		if isFile(filepath.Join(packageRoot, filepath.FromSlash(rel))) {
			diag.Warnf("declared launch file %q does not exist; using %q instead", href, rel)
			return rel, nil
		}
	}

	probed := filepath.Join(packageRoot, filepath.FromSlash(dir))
	return "", scormerr.New(scormerr.CodeLaunchFileNotFound,
		fmt.Sprintf("launch file %q does not exist and no conventional fallback was found", href)).
		WithDetail("attemptedHref", href).
		WithDetail("probedDirectory", dir).
		WithDetail("availableFiles", listDirectory(probed))
}

// LaunchURL builds the public URL for a resolved path: each segment of
// <mount>/<courseId>/<path> is percent-encoded independently so names with
// reserved URL characters stay addressable.
func (r *Resolver) LaunchURL(courseID, relPath string) string {
	return r.mount + "/" + url.PathEscape(courseID) + "/" + EncodePath(relPath)
}

// EncodePath percent-encodes every segment of a slash-separated relative
// path independently, preserving the separators.
func EncodePath(relPath string) string {
	segments := strings.Split(relPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// DecodePath is the inverse of EncodePath.
func DecodePath(encoded string) (string, error) {
	segments := strings.Split(encoded, "/")
	for i, seg := range segments {
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			return "", err
		}
		segments[i] = decoded
	}
	return strings.Join(segments, "/"), nil
}

// cleanHref normalizes a declared href for filesystem lookup: query and
// fragment suffixes are stripped, separators normalized, leading "./"
// removed. Hrefs that climb out of the package root resolve to nothing.
func cleanHref(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	href = strings.TrimSpace(strings.ReplaceAll(href, "\\", "/"))
	href = path.Clean("/" + href)[1:] // collapses ./ and ../ without escaping the root
	if href == "" || href == "." {
		return ""
	}
	return href
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// listDirectory returns up to maxListedFiles entry names from dir, sorted,
// with "<n> more" appended when truncated. A missing directory yields a
// single explanatory entry rather than an empty list.
func listDirectory(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{fmt.Sprintf("(directory %s does not exist)", dir)}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > maxListedFiles {
		extra := len(names) - maxListedFiles
		names = append(names[:maxListedFiles], fmt.Sprintf("... and %d more", extra))
	}
	return names
}
