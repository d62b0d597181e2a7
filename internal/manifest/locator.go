// Package manifest locates and parses imsmanifest.xml files inside
// extracted package workspaces.
//
// Real-world packages are sloppy: the manifest may sit one or more
// directories deep, appear more than once, or be structurally malformed.
// The locator and parser are written to tolerate all of that, recovering
// what they confidently can and recording the rest as warnings.
package manifest

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scormkit/scormkit/internal/scormerr"
	"github.com/scormkit/scormkit/internal/types"
)

// Filename is the manifest filename mandated by the packaging standard,
// matched case-insensitively because authoring tools disagree on casing.
const Filename = "imsmanifest.xml"

// Locate scans rootDir recursively for the manifest and returns its path
// together with the package root (the directory containing it). All
// resource hrefs resolve relative to the package root, never to rootDir;
// many packages wrap their actual content a directory or more deep.
//
// When several manifests are present the shallowest path wins, ties broken
// lexicographically, and a warning names every candidate. The tie-break is
// deliberate: directory traversal order differs across platforms and must
// not decide which content gets served.
func Locate(rootDir string, diag *types.Diagnostics) (manifestPath, packageRoot string, err error) {
	var matches []string
	walkErr := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), Filename) {
			matches = append(matches, path)
		}
		return nil
	})
	if walkErr != nil {
		return "", "", scormerr.Wrap(scormerr.CodeManifestNotFound,
			"scanning extracted package for "+Filename, walkErr).
			WithDetail("workspace", rootDir)
	}

	if len(matches) == 0 {
		return "", "", scormerr.New(scormerr.CodeManifestNotFound,
			"no "+Filename+" found anywhere in the extracted package").
			WithDetail("workspace", rootDir)
	}

	sort.Slice(matches, func(i, j int) bool {
		di := strings.Count(matches[i], string(filepath.Separator))
		dj := strings.Count(matches[j], string(filepath.Separator))
		if di != dj {
			return di < dj
		}
		return matches[i] < matches[j]
	})

	if len(matches) > 1 {
		rel := make([]string, len(matches))
		for i, m := range matches {
			if r, err := filepath.Rel(rootDir, m); err == nil {
				rel[i] = filepath.ToSlash(r)
			} else {
				rel[i] = m
			}
		}
		diag.Warnf("found %d manifests (%s); using the shallowest: %s",
			len(matches), strings.Join(rel, ", "), rel[0])
	}

	manifestPath = matches[0]
	packageRoot = filepath.Dir(manifestPath)

	diag.ManifestLocation = manifestPath
	diag.PackageRootLocation = packageRoot

	return manifestPath, packageRoot, nil
}
