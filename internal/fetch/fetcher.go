// Package fetch supplies archive bytes for the engine. Locators are either
// http(s) URLs or local filesystem paths; both land the archive in a file on
// disk so extraction can stream from it.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/scormkit/scormkit/internal/scormerr"
)

// Fetcher downloads a package archive to destPath.
type Fetcher interface {
	Fetch(ctx context.Context, locator, destPath string) error
}

// ArchiveFetcher fetches over HTTP(S) with a bounded timeout, or copies from
// the local filesystem when the locator is a plain path or file:// URL.
type ArchiveFetcher struct {
	client *http.Client
	// maxBytes caps the downloaded size; zero means unlimited.
	maxBytes int64
}

// NewArchiveFetcher creates a fetcher with the given download timeout and
// size cap.
func NewArchiveFetcher(timeout time.Duration, maxBytes int64) *ArchiveFetcher {
	return &ArchiveFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch writes the archive identified by locator to destPath.
func (f *ArchiveFetcher) Fetch(ctx context.Context, locator, destPath string) error {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return f.fetchHTTP(ctx, locator, destPath)
	}
	return f.fetchFile(locator, destPath)
}

func (f *ArchiveFetcher) fetchHTTP(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return scormerr.Wrap(scormerr.CodeDownloadFailed, "building download request for "+url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return scormerr.Wrap(scormerr.CodeDownloadFailed, "downloading package from "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return scormerr.New(scormerr.CodeDownloadFailed,
			fmt.Sprintf("downloading package from %s: status %d", url, resp.StatusCode))
	}

	return f.writeBody(resp.Body, url, destPath)
}

func (f *ArchiveFetcher) fetchFile(path, destPath string) error {
	path = strings.TrimPrefix(path, "file://")

	src, err := os.Open(path)
	if err != nil {
		return scormerr.Wrap(scormerr.CodeDownloadFailed, "opening local package "+path, err)
	}
	defer src.Close()

	return f.writeBody(src, path, destPath)
}

func (f *ArchiveFetcher) writeBody(body io.Reader, locator, destPath string) error {
	dst, err := os.Create(destPath)
	if err != nil {
		return scormerr.Wrap(scormerr.CodeWorkspaceFailed, "creating archive file "+destPath, err)
	}
	defer dst.Close()

	reader := body
	if f.maxBytes > 0 {
		reader = io.LimitReader(body, f.maxBytes+1)
	}

	written, err := io.Copy(dst, reader)
	if err != nil {
		return scormerr.Wrap(scormerr.CodeDownloadFailed, "reading package bytes from "+locator, err)
	}
	if f.maxBytes > 0 && written > f.maxBytes {
		return scormerr.New(scormerr.CodeDownloadFailed,
			fmt.Sprintf("package from %s exceeds the configured size cap of %d bytes", locator, f.maxBytes))
	}

	return dst.Sync()
}
