// Package engine orchestrates package processing: fetch, extract, locate
// and parse the manifest, resolve launch files, and memoize the result.
//
// The engine is a constructed object injected into its callers, not an
// ambient singleton. Concurrent ProcessPackage calls for the same
// (locator, courseID) key share a single in-flight extraction; results are
// cached for the process lifetime (bounded LRU, optional TTL), failures
// never are, so every failed attempt is retryable by the next call.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/scormkit/scormkit/internal/archive"
	"github.com/scormkit/scormkit/internal/config"
	"github.com/scormkit/scormkit/internal/fetch"
	"github.com/scormkit/scormkit/internal/logging"
	"github.com/scormkit/scormkit/internal/manifest"
	"github.com/scormkit/scormkit/internal/resolver"
	"github.com/scormkit/scormkit/internal/scormerr"
	"github.com/scormkit/scormkit/internal/types"
)

// Engine is the package extraction and launch-resolution engine.
type Engine struct {
	workspaceDir string
	fetcher      fetch.Fetcher
	resolver     *resolver.Resolver
	cache        *resultCache
	group        singleflight.Group
	events       *Broadcaster
	logger       logging.Logger
}

// New creates an Engine from configuration. The fetcher is injected so
// tests can count fetch side effects and substitute transports.
func New(cfg *config.Config, fetcher fetch.Fetcher, logger logging.Logger) *Engine {
	return &Engine{
		workspaceDir: cfg.Workspace.Dir,
		fetcher:      fetcher,
		resolver:     resolver.New(cfg.Server.Mount, cfg.Resolver.FallbackFilenames),
		cache:        newResultCache(cfg.Cache.MaxEntries, cfg.Cache.TTL),
		events:       NewBroadcaster(),
		logger:       logger.WithComponent("engine"),
	}
}

// WorkspaceDir returns the root under which course workspaces are created.
func (e *Engine) WorkspaceDir() string {
	return e.workspaceDir
}

// Events returns the engine's lifecycle event broadcaster.
func (e *Engine) Events() *Broadcaster {
	return e.events
}

// Stats returns a snapshot of result-cache statistics.
func (e *Engine) Stats() CacheStats {
	return e.cache.Stats()
}

// ProcessPackage fetches, extracts and resolves the package identified by
// locator into the workspace for courseID, returning the cached result when
// one exists.
//
// Exactly one extraction runs per key at a time: concurrent callers for the
// same key await the one in-flight attempt and observe its exact outcome.
func (e *Engine) ProcessPackage(ctx context.Context, locator, courseID string) (*types.ExtractedPackageInfo, error) {
	key := types.PackageKey{Locator: locator, CourseID: courseID}

	if info, ok := e.cache.Get(key.String()); ok {
		return info, nil
	}

	result, err, _ := e.group.Do(key.String(), func() (interface{}, error) {
		// A caller that lost the race to a just-finished extraction
		// takes the cached result instead of extracting again.
		if info, ok := e.cache.Get(key.String()); ok {
			return info, nil
		}

		info, err := e.extract(ctx, locator, courseID)
		if err != nil {
			e.logger.Error(ctx, err, "package processing failed",
				"course_id", courseID, "locator", locator)
			e.events.Publish(Event{
				Type:     EventFailed,
				CourseID: courseID,
				Locator:  locator,
				Code:     string(scormerr.CodeOf(err)),
			})
			return nil, err
		}

		e.cache.Set(key.String(), info)
		e.logger.Info(ctx, "package processed",
			"course_id", courseID,
			"title", info.Title,
			"launch_file", info.LaunchFile,
			"warnings", len(info.Diagnostics.Warnings))
		e.events.Publish(Event{Type: EventProcessed, CourseID: courseID, Locator: locator})
		return info, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*types.ExtractedPackageInfo), nil
}

// GetItemLaunchURL returns the resolved public URL for one specific item of
// an already-processed (or freshly processed) package.
func (e *Engine) GetItemLaunchURL(ctx context.Context, locator, courseID, orgID, itemID string) (string, error) {
	info, err := e.ProcessPackage(ctx, locator, courseID)
	if err != nil {
		return "", err
	}

	item := info.FindItem(orgID, itemID)
	if item == nil {
		return "", scormerr.New(scormerr.CodeItemNotFound,
			fmt.Sprintf("organization %q has no item %q", orgID, itemID)).
			WithDetail("courseId", courseID).
			WithDiagnostics(info.Diagnostics)
	}
	if item.LaunchURL == "" {
		return "", scormerr.New(scormerr.CodeLaunchFileNotFound,
			fmt.Sprintf("item %q never resolved to an existing launch file", itemID)).
			WithDetail("courseId", courseID).
			WithDetail("attemptedHref", item.Href).
			WithDiagnostics(info.Diagnostics)
	}
	return item.LaunchURL, nil
}

// Invalidate drops the cached result for one key, forcing the next
// ProcessPackage call to re-extract. It reports whether an entry existed.
func (e *Engine) Invalidate(locator, courseID string) bool {
	key := types.PackageKey{Locator: locator, CourseID: courseID}
	existed := e.cache.Delete(key.String())
	if existed {
		e.events.Publish(Event{Type: EventInvalidated, CourseID: courseID, Locator: locator})
	}
	return existed
}

// InvalidateCourse drops every cached result for courseID regardless of
// locator, returning the number of entries removed. The workspace watcher
// calls this when a course directory disappears from disk.
func (e *Engine) InvalidateCourse(courseID string) int {
	removed := e.cache.DeleteCourse(courseID)
	if removed > 0 {
		e.events.Publish(Event{Type: EventInvalidated, CourseID: courseID})
	}
	return removed
}

// Clear drops every cached result.
func (e *Engine) Clear() {
	e.cache.Clear()
}

// Close releases the engine's resources. The caches survive only in
// memory, so there is nothing to flush.
func (e *Engine) Close() {
	e.events.Close()
}

// extract runs one full extraction attempt. Every fatal error it returns is
// an ExtractionError carrying the diagnostics accumulated so far.
func (e *Engine) extract(ctx context.Context, locator, courseID string) (*types.ExtractedPackageInfo, error) {
	diag := types.NewDiagnostics()

	if err := validateCourseID(courseID); err != nil {
		return nil, fail(err, diag, locator, courseID, "")
	}

	workspace := filepath.Join(e.workspaceDir, courseID)

	// The workspace is exclusively owned by this attempt: singleflight
	// guarantees no concurrent extraction for the same courseID+locator,
	// and a stale tree from a previous attempt must not leak into this one.
	if err := os.RemoveAll(workspace); err != nil {
		return nil, fail(scormerr.Wrap(scormerr.CodeWorkspaceFailed,
			"clearing previous workspace", err), diag, locator, courseID, workspace)
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fail(scormerr.Wrap(scormerr.CodeWorkspaceFailed,
			"creating workspace", err), diag, locator, courseID, workspace)
	}

	archivePath := filepath.Join(e.workspaceDir, courseID+".zip")
	// The downloaded archive is an intermediate; it goes away whether or
	// not extraction succeeds.
	defer os.Remove(archivePath)

	if err := e.fetcher.Fetch(ctx, locator, archivePath); err != nil {
		return nil, fail(err, diag, locator, courseID, workspace)
	}

	files, err := archive.Extract(archivePath, workspace)
	if err != nil {
		return nil, fail(err, diag, locator, courseID, workspace)
	}
	diag.ExtractedFiles = files
	e.logger.Debug(ctx, "archive extracted", "course_id", courseID, "files", len(files))

	manifestPath, packageRoot, err := manifest.Locate(workspace, diag)
	if err != nil {
		return nil, fail(err, diag, locator, courseID, workspace)
	}

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fail(scormerr.Wrap(scormerr.CodeManifestUnreadable,
			"reading "+manifestPath, err), diag, locator, courseID, workspace)
	}

	doc, err := manifest.Parse(raw, courseID, diag)
	if err != nil {
		return nil, fail(err, diag, locator, courseID, workspace)
	}

	rootRel, err := filepath.Rel(workspace, packageRoot)
	if err != nil || rootRel == "." {
		rootRel = ""
	}
	rootRel = filepath.ToSlash(rootRel)

	e.resolveItems(doc, courseID, packageRoot, rootRel, diag)

	launchFile, launchURL, err := e.primaryLaunch(doc, diag)
	if err != nil {
		return nil, fail(err, diag, locator, courseID, workspace)
	}

	description := doc.Description
	if description == "" {
		abs := filepath.Join(packageRoot, filepath.FromSlash(launchFile))
		if title := resolver.ProbeHTMLTitle(abs); title != "" {
			description = title
			diag.Warnf("manifest has no description; using the launch page title %q", title)
		}
	}

	return &types.ExtractedPackageInfo{
		CourseID:              courseID,
		Title:                 doc.Title,
		Description:           description,
		SchemaVersion:         doc.SchemaVersion,
		LaunchFile:            launchFile,
		LaunchURL:             launchURL,
		PackageRoot:           rootRel,
		DefaultOrganizationID: doc.DefaultOrganizationID,
		Organizations:         doc.Organizations,
		RawManifest:           doc.Raw,
		Diagnostics:           diag,
	}, nil
}

// resolveItems verifies every item's launch file. Per-item failures are
// recorded in diagnostics and leave the item unresolved; they never abort
// the package.
func (e *Engine) resolveItems(doc *types.ManifestDocument, courseID, packageRoot, rootRel string, diag *types.Diagnostics) {
	for oi := range doc.Organizations {
		org := &doc.Organizations[oi]
		for ii := range org.Items {
			item := &org.Items[ii]
			if item.Href == "" {
				if item.ResourceRef != "" {
					diag.Errorf("item %q cannot launch: resource %q declares no file",
						item.ID, item.ResourceRef)
				}
				continue
			}

			rel, err := e.resolver.Resolve(packageRoot, item.Href, diag)
			if err != nil {
				diag.Errorf("item %q cannot launch: %v", item.ID, err)
				continue
			}

			item.LaunchPath = rel
			item.LaunchURL = e.resolver.LaunchURL(courseID, joinServePath(rootRel, rel))
		}
	}
}

// primaryLaunch picks the package's single primary launch target: the first
// resolved item of the default organization. An unresolvable default
// organization is the one per-item failure that escalates to an overall
// failure.
func (e *Engine) primaryLaunch(doc *types.ManifestDocument, diag *types.Diagnostics) (launchFile, launchURL string, err error) {
	var target *types.Organization
	for oi := range doc.Organizations {
		if doc.Organizations[oi].ID == doc.DefaultOrganizationID {
			target = &doc.Organizations[oi]
			break
		}
	}
	if target == nil {
		// The parser already normalized DefaultOrganizationID, so this
		// only trips on an empty organization list mutation upstream.
		target = &doc.Organizations[0]
	}

	for ii := range target.Items {
		item := &target.Items[ii]
		if item.LaunchPath != "" {
			return item.LaunchPath, item.LaunchURL, nil
		}
	}

	return "", "", scormerr.New(scormerr.CodeNoLaunchableItems,
		fmt.Sprintf("no item in organization %q resolves to an existing launch file", target.ID)).
		WithDetail("organizationId", target.ID)
}

// fail attaches diagnostics and standard details to a terminal error,
// wrapping non-structured causes on the way.
func fail(err error, diag *types.Diagnostics, locator, courseID, workspace string) error {
	var ee *scormerr.ExtractionError
	if !errors.As(err, &ee) {
		ee = scormerr.Wrap(scormerr.CodeWorkspaceFailed, "package processing failed", err)
	}

	diag.Errorf("%v", ee)

	ee.WithDiagnostics(diag).
		WithDetail("locator", locator).
		WithDetail("courseId", courseID)
	if workspace != "" {
		ee.WithDetail("workspace", workspace)
	}
	return ee
}

// joinServePath prefixes a package-root-relative path with the package
// root's own position inside the workspace, yielding the path the content
// mount serves.
func joinServePath(rootRel, rel string) string {
	if rootRel == "" {
		return rel
	}
	return path.Join(rootRel, rel)
}

// validateCourseID rejects IDs that would escape the workspace root or
// collide with sibling files.
func validateCourseID(courseID string) error {
	if courseID == "" {
		return scormerr.New(scormerr.CodeWorkspaceFailed, "course ID must not be empty")
	}
	if strings.ContainsAny(courseID, "/\\") || courseID == "." || courseID == ".." {
		return scormerr.New(scormerr.CodeWorkspaceFailed,
			fmt.Sprintf("course ID %q must not contain path separators", courseID))
	}
	return nil
}
