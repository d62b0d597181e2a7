// Package watcher observes the workspace root so cached results never
// outlive the files they point at: when a course directory disappears from
// disk, every cache entry for that course is invalidated and the next
// request re-extracts.
package watcher

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/scormkit/scormkit/internal/logging"
)

// Invalidator is the slice of the engine the watcher needs.
type Invalidator interface {
	InvalidateCourse(courseID string) int
}

// WorkspaceWatcher invalidates cached packages whose on-disk workspace is
// removed behind the engine's back.
type WorkspaceWatcher struct {
	workspaceDir string
	watcher      *fsnotify.Watcher
	invalidator  Invalidator
	logger       logging.Logger
}

// New creates a watcher over workspaceDir. The directory is created when
// missing so the fsnotify watch can attach before the first extraction.
func New(workspaceDir string, invalidator Invalidator, logger logging.Logger) (*WorkspaceWatcher, error) {
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(workspaceDir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &WorkspaceWatcher{
		workspaceDir: workspaceDir,
		watcher:      fsw,
		invalidator:  invalidator,
		logger:       logger.WithComponent("watcher"),
	}, nil
}

// Start runs the watch loop until ctx is cancelled.
func (w *WorkspaceWatcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
}

// Stop closes the underlying fsnotify watcher.
func (w *WorkspaceWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *WorkspaceWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "workspace watch error")
		}
	}
}

// handleEvent reacts to removals and renames of direct children of the
// workspace root. Writes inside a course directory are the engine's own
// extraction traffic and are ignored.
func (w *WorkspaceWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if filepath.Dir(event.Name) != filepath.Clean(w.workspaceDir) {
		return
	}

	courseID := filepath.Base(event.Name)
	if courseID == "" || courseID == "." || filepath.Ext(courseID) == ".zip" {
		// Archive files are deleted by the engine after every
		// extraction; that is not a workspace removal.
		return
	}

	if removed := w.invalidator.InvalidateCourse(courseID); removed > 0 {
		w.logger.Info(ctx, "workspace removed from disk; cache invalidated",
			"course_id", courseID, "entries", removed)
	}
}
