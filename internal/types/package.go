// Package types defines the core data model shared across the scormkit
// engine: package identity, the parsed manifest tree, the cached extraction
// result, and the per-attempt diagnostics accumulator.
package types

// PackageKey identifies one extraction for caching and in-flight
// de-duplication. Two requests with the same locator and course ID are the
// same package.
type PackageKey struct {
	// Locator is the URL or filesystem path the archive bytes come from
	Locator string
	// CourseID names the workspace directory and the public content mount
	CourseID string
}

// String returns the canonical cache-key form of the key.
func (k PackageKey) String() string {
	return k.Locator + "|" + k.CourseID
}

// Item is a single navigable node inside an organization, referencing one
// launchable resource.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// ResourceRef is the identifierref declared in the manifest; it keys
	// into the resource table and may dangle.
	ResourceRef string `json:"resourceRef"`
	// Href is the file path declared by the referenced resource, relative
	// to the package root. Empty when ResourceRef has no matching resource.
	Href string `json:"href"`
	// LaunchPath is the verified servable path relative to the package
	// root. Empty when resolution failed for this item.
	LaunchPath string `json:"launchPath,omitempty"`
	// LaunchURL is the public URL for LaunchPath, empty when unresolved.
	LaunchURL string `json:"launchUrl,omitempty"`
}

// Organization is a named, ordered grouping of items. Item order is
// presentation order and is preserved from the manifest.
type Organization struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// ManifestDocument is the parsed manifest: course metadata plus the
// organization tree and the resource lookup table.
type ManifestDocument struct {
	Title                 string
	Description           string
	SchemaVersion         string
	DefaultOrganizationID string
	Organizations         []Organization
	// Resources maps resource identifier to its declared file href
	// (untrusted until the resolver verifies it).
	Resources map[string]string
	// Raw is the manifest text as found on disk, retained for debugging.
	Raw string
}

// ExtractedPackageInfo is the cached result of processing one package.
type ExtractedPackageInfo struct {
	CourseID      string `json:"courseId"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	SchemaVersion string `json:"schemaVersion"`
	LaunchFile    string `json:"launchFile"`
	LaunchURL     string `json:"launchUrl"`
	// PackageRoot is the directory containing the manifest, relative to
	// the course workspace. Empty when the manifest sat at the top level.
	PackageRoot           string         `json:"packageRoot"`
	DefaultOrganizationID string         `json:"defaultOrganizationId"`
	Organizations         []Organization `json:"organizations"`
	RawManifest           string         `json:"-"`
	Diagnostics           *Diagnostics   `json:"diagnostics"`
}

// FindItem returns the item with the given organization and item IDs, or nil.
func (p *ExtractedPackageInfo) FindItem(orgID, itemID string) *Item {
	for oi := range p.Organizations {
		if p.Organizations[oi].ID != orgID {
			continue
		}
		for ii := range p.Organizations[oi].Items {
			if p.Organizations[oi].Items[ii].ID == itemID {
				return &p.Organizations[oi].Items[ii]
			}
		}
	}
	return nil
}
