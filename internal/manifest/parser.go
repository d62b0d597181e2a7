package manifest

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/scormkit/scormkit/internal/scormerr"
	"github.com/scormkit/scormkit/internal/types"
)

// DefaultSchemaVersion is assumed when the manifest declares none.
const DefaultSchemaVersion = "1.2"

// Parse extracts course metadata, the organization/item tree and the
// resource table from manifest text.
//
// Parsing is deliberately permissive: it walks XML tokens rather than
// decoding against a schema, downgrades per-field absence to warnings, and
// keeps whatever was recovered when the document turns malformed
// mid-stream. The one hard failure is a manifest with no organizations at
// all, since such a package has nothing launchable.
func Parse(raw []byte, courseID string, diag *types.Diagnostics) (*types.ManifestDocument, error) {
	doc := &types.ManifestDocument{
		Resources: make(map[string]string),
		Raw:       string(raw),
	}

	p := &parser{doc: doc, diag: diag}
	p.run(raw)

	if len(doc.Organizations) == 0 {
		msg := "manifest declares no organizations; the package has nothing launchable"
		if p.malformed != nil {
			msg = "manifest XML is malformed and no organizations could be recovered"
		}
		return nil, scormerr.Wrap(scormerr.CodeNoOrganizations, msg, p.malformed).
			WithDiagnostics(diag)
	}

	p.applyDefaults(courseID)
	p.fillItemHrefs()

	diag.OrganizationsFound = len(doc.Organizations)
	diag.ResourcesFound = len(doc.Resources)
	for _, org := range doc.Organizations {
		diag.ItemsFound += len(org.Items)
	}

	return doc, nil
}

// parser carries the token-walk state.
type parser struct {
	doc  *types.ManifestDocument
	diag *types.Diagnostics

	stack      []string
	currentOrg *types.Organization
	// itemOpen counts nested <item> elements inside the current
	// organization; nested items are flattened in document order.
	itemOpen int

	// text capture: target names the field the next character data
	// belongs to, empty means discard. captureElem is the element that
	// began the capture; only its end tag commits, so inline markup inside
	// a title does not cut the text short.
	target      string
	captureElem string
	buf         strings.Builder

	lomTitle  string
	malformed error
}

func (p *parser) run(raw []byte) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.Strict = false
	decoder.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.malformed = err
			p.diag.Warnf("manifest XML is malformed (%v); continuing with the fields recovered before the error", err)
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.startElement(t)
		case xml.CharData:
			if p.target != "" {
				p.buf.Write(t)
			}
		case xml.EndElement:
			p.endElement(t)
		}
	}

	// An organization left open by a truncated document still counts.
	p.closeOrg()
}

func (p *parser) startElement(t xml.StartElement) {
	name := strings.ToLower(t.Name.Local)
	p.stack = append(p.stack, name)

	switch name {
	case "organizations":
		p.doc.DefaultOrganizationID = attr(t, "default")

	case "organization":
		p.closeOrg()
		p.currentOrg = &types.Organization{
			ID:    attr(t, "identifier"),
			Items: []types.Item{},
		}
		p.itemOpen = 0

	case "item":
		if p.currentOrg == nil {
			p.diag.Warnf("ignoring <item identifier=%q> outside any organization", attr(t, "identifier"))
			return
		}
		p.currentOrg.Items = append(p.currentOrg.Items, types.Item{
			ID:          attr(t, "identifier"),
			ResourceRef: attr(t, "identifierref"),
		})
		p.itemOpen++

	case "resource":
		id := attr(t, "identifier")
		if id == "" {
			p.diag.Warnf("ignoring <resource> without an identifier attribute")
			return
		}
		p.doc.Resources[id] = attr(t, "href")

	case "title":
		p.beginCapture(p.titleTarget(), name)

	case "schemaversion":
		p.beginCapture("schemaversion", name)

	case "langstring", "string":
		// LOM metadata wraps its text in language-tagged children.
		if p.inside("description") {
			p.beginCapture("description", name)
		} else if p.inside("general") && p.inside("title") {
			p.beginCapture("lom-title", name)
		}

	case "description":
		// Plain-text description without a langstring child.
		if p.inside("metadata") {
			p.beginCapture("description", name)
		}
	}
}

// titleTarget decides whose title a bare <title> element is.
func (p *parser) titleTarget() string {
	if p.currentOrg != nil && p.itemOpen > 0 {
		return "item-title"
	}
	if p.currentOrg != nil {
		return "org-title"
	}
	if p.inside("general") {
		return "lom-title"
	}
	return ""
}

func (p *parser) endElement(t xml.EndElement) {
	name := strings.ToLower(t.Name.Local)
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i] == name {
			p.stack = p.stack[:i]
			break
		}
	}

	if name == p.captureElem {
		p.commitCapture()
	}

	switch name {
	case "organization":
		p.closeOrg()
	case "item":
		if p.itemOpen > 0 {
			p.itemOpen--
		}
	}
}

func (p *parser) closeOrg() {
	if p.currentOrg == nil {
		return
	}
	p.doc.Organizations = append(p.doc.Organizations, *p.currentOrg)
	p.currentOrg = nil
	p.itemOpen = 0
}

func (p *parser) beginCapture(target, elem string) {
	p.target = target
	p.captureElem = elem
	p.buf.Reset()
}

func (p *parser) commitCapture() {
	if p.target == "" {
		p.captureElem = ""
		return
	}
	text := strings.TrimSpace(p.buf.String())
	target := p.target
	p.target = ""
	p.captureElem = ""
	p.buf.Reset()
	if text == "" {
		return
	}

	switch target {
	case "org-title":
		if p.currentOrg != nil && p.currentOrg.Title == "" {
			p.currentOrg.Title = text
		}
	case "item-title":
		if p.currentOrg != nil && len(p.currentOrg.Items) > 0 {
			last := &p.currentOrg.Items[len(p.currentOrg.Items)-1]
			if last.Title == "" {
				last.Title = text
			}
		}
	case "lom-title":
		if p.lomTitle == "" {
			p.lomTitle = text
		}
	case "schemaversion":
		if p.doc.SchemaVersion == "" {
			p.doc.SchemaVersion = text
		}
	case "description":
		if p.doc.Description == "" {
			p.doc.Description = text
		}
	}
}

// applyDefaults fills missing metadata, recording a warning for each
// documented fallback.
func (p *parser) applyDefaults(courseID string) {
	doc := p.doc

	if doc.DefaultOrganizationID == "" {
		doc.DefaultOrganizationID = doc.Organizations[0].ID
		p.diag.Warnf("manifest declares no default organization; using the first one: %q", doc.Organizations[0].ID)
	} else if !p.hasOrganization(doc.DefaultOrganizationID) {
		p.diag.Warnf("default organization %q does not exist in the manifest; using the first one: %q",
			doc.DefaultOrganizationID, doc.Organizations[0].ID)
		doc.DefaultOrganizationID = doc.Organizations[0].ID
	}

	switch {
	case p.lomTitle != "":
		doc.Title = p.lomTitle
	case p.defaultOrgTitle() != "":
		doc.Title = p.defaultOrgTitle()
	default:
		doc.Title = deriveTitle(courseID)
		p.diag.Warnf("manifest declares no course title; derived %q from the course ID", doc.Title)
	}

	if doc.SchemaVersion == "" {
		doc.SchemaVersion = DefaultSchemaVersion
		p.diag.Warnf("manifest declares no schema version; assuming %s", DefaultSchemaVersion)
	}
}

// fillItemHrefs copies each item's declared href from the resource table;
// dangling references keep an empty href so the navigation tree stays
// intact for diagnostics.
func (p *parser) fillItemHrefs() {
	for oi := range p.doc.Organizations {
		org := &p.doc.Organizations[oi]
		for ii := range org.Items {
			item := &org.Items[ii]
			if item.ResourceRef == "" {
				continue
			}
			href, ok := p.doc.Resources[item.ResourceRef]
			if !ok {
				p.diag.Warnf("item %q references resource %q which the manifest never declares",
					item.ID, item.ResourceRef)
				continue
			}
			item.Href = href
		}
	}
}

func (p *parser) hasOrganization(id string) bool {
	for _, org := range p.doc.Organizations {
		if org.ID == id {
			return true
		}
	}
	return false
}

func (p *parser) defaultOrgTitle() string {
	for _, org := range p.doc.Organizations {
		if org.ID == p.doc.DefaultOrganizationID {
			return org.Title
		}
	}
	return ""
}

// inside reports whether the named element is open anywhere on the stack.
func (p *parser) inside(name string) bool {
	for _, s := range p.stack {
		if s == name {
			return true
		}
	}
	return false
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

// deriveTitle turns a course ID like "intro-to-first-aid_v2" into a
// human-presentable title.
func deriveTitle(courseID string) string {
	cleaned := strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(courseID)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return "Untitled Course"
	}
	return cases.Title(language.English).String(cleaned)
}
