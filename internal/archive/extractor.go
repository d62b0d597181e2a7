// Package archive extracts zip package archives into course workspaces.
//
// Entries are processed strictly one at a time (open, stream, close, next)
// so memory use stays bounded regardless of archive size. Every extracted
// entry name is reported back for diagnostics.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/scormkit/scormkit/internal/scormerr"
)

// Extract unpacks the zip at archivePath under targetDir, preserving entry
// hierarchy and creating parent directories as needed. Directory-marker
// entries are skipped. It returns the names of all extracted entries in
// archive order.
//
// Corrupt or non-zip input fails with code archive-invalid. Entry paths that
// would escape targetDir are rejected the same way; a package has no
// business writing outside its own workspace.
func Extract(archivePath, targetDir string) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, scormerr.Wrap(scormerr.CodeArchiveInvalid,
			"opening package archive: not a valid zip file", err)
	}
	defer reader.Close()

	extracted := make([]string, 0, len(reader.File))
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() || strings.HasSuffix(entry.Name, "/") {
			continue
		}

		destPath, err := securePath(targetDir, entry.Name)
		if err != nil {
			return nil, err
		}

		if err := extractEntry(entry, destPath); err != nil {
			return nil, err
		}
		extracted = append(extracted, entry.Name)
	}

	return extracted, nil
}

// securePath joins an entry name onto targetDir, rejecting names that
// resolve outside it.
func securePath(targetDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", scormerr.New(scormerr.CodeArchiveInvalid,
			"archive entry "+name+" escapes the extraction directory")
	}
	return filepath.Join(targetDir, cleaned), nil
}

// extractEntry streams one entry to disk, closing both handles before the
// next entry is touched.
func extractEntry(entry *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return scormerr.Wrap(scormerr.CodeWorkspaceFailed,
			"creating directory for "+entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return scormerr.Wrap(scormerr.CodeArchiveInvalid,
			"reading archive entry "+entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return scormerr.Wrap(scormerr.CodeWorkspaceFailed,
			"creating file for archive entry "+entry.Name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return scormerr.Wrap(scormerr.CodeArchiveInvalid,
			"extracting archive entry "+entry.Name, err)
	}

	return nil
}
