package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scormkit/scormkit/internal/scormerr"
	"github.com/scormkit/scormkit/internal/types"
)

const fullManifest = `<?xml version="1.0" encoding="UTF-8"?>
<manifest identifier="MANIFEST-1" xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2">
  <metadata>
    <schema>ADL SCORM</schema>
    <schemaversion>1.2</schemaversion>
    <lom>
      <general>
        <title><langstring xml:lang="en">First Aid Basics</langstring></title>
        <description><langstring xml:lang="en">An introduction to first aid.</langstring></description>
      </general>
    </lom>
  </metadata>
  <organizations default="ORG1">
    <organization identifier="ORG1">
      <title>First Aid</title>
      <item identifier="ITEM1" identifierref="RES1">
        <title>Getting Started</title>
      </item>
      <item identifier="ITEM2" identifierref="RES2">
        <title>Bandaging</title>
      </item>
    </organization>
    <organization identifier="ORG2">
      <title>Extras</title>
      <item identifier="ITEM3" identifierref="RES3">
        <title>Reference</title>
      </item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="RES1" type="webcontent" adlcp:scormtype="sco" href="story.html"/>
    <resource identifier="RES2" type="webcontent" href="content/bandaging.html"/>
    <resource identifier="RES3" type="webcontent" href="extras/index.html"/>
  </resources>
</manifest>`

func TestParse_FullManifest(t *testing.T) {
	diag := types.NewDiagnostics()
	doc, err := Parse([]byte(fullManifest), "course-1", diag)
	require.NoError(t, err)

	assert.Equal(t, "First Aid Basics", doc.Title)
	assert.Equal(t, "An introduction to first aid.", doc.Description)
	assert.Equal(t, "1.2", doc.SchemaVersion)
	assert.Equal(t, "ORG1", doc.DefaultOrganizationID)

	require.Len(t, doc.Organizations, 2)
	org := doc.Organizations[0]
	assert.Equal(t, "ORG1", org.ID)
	assert.Equal(t, "First Aid", org.Title)
	require.Len(t, org.Items, 2)
	assert.Equal(t, "ITEM1", org.Items[0].ID)
	assert.Equal(t, "Getting Started", org.Items[0].Title)
	assert.Equal(t, "RES1", org.Items[0].ResourceRef)
	assert.Equal(t, "story.html", org.Items[0].Href)
	assert.Equal(t, "content/bandaging.html", org.Items[1].Href)

	assert.Equal(t, 3, diag.ResourcesFound)
	assert.Equal(t, 2, diag.OrganizationsFound)
	assert.Equal(t, 3, diag.ItemsFound)
	assert.Empty(t, diag.Warnings)
	assert.Equal(t, fullManifest, doc.Raw)
}

func TestParse_ItemOrderPreserved(t *testing.T) {
	diag := types.NewDiagnostics()
	doc, err := Parse([]byte(fullManifest), "course-1", diag)
	require.NoError(t, err)

	ids := make([]string, 0, 2)
	for _, item := range doc.Organizations[0].Items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"ITEM1", "ITEM2"}, ids)
}

func TestParse_MissingDefaultOrganization(t *testing.T) {
	manifest := `<manifest>
  <organizations>
    <organization identifier="ONLY">
      <title>Only Org</title>
      <item identifier="I1" identifierref="R1"><title>One</title></item>
    </organization>
  </organizations>
  <resources><resource identifier="R1" href="index.html"/></resources>
</manifest>`

	diag := types.NewDiagnostics()
	doc, err := Parse([]byte(manifest), "course-1", diag)
	require.NoError(t, err)

	assert.Equal(t, "ONLY", doc.DefaultOrganizationID)
	require.NotEmpty(t, diag.Warnings)
	assert.Contains(t, strings.Join(diag.Warnings, "\n"), "no default organization")
}

func TestParse_UnmatchedDefaultOrganization(t *testing.T) {
	manifest := `<manifest>
  <organizations default="GHOST">
    <organization identifier="REAL">
      <title>Real</title>
      <item identifier="I1" identifierref="R1"><title>One</title></item>
    </organization>
  </organizations>
  <resources><resource identifier="R1" href="index.html"/></resources>
</manifest>`

	diag := types.NewDiagnostics()
	doc, err := Parse([]byte(manifest), "course-1", diag)
	require.NoError(t, err)

	assert.Equal(t, "REAL", doc.DefaultOrganizationID)
	assert.Contains(t, strings.Join(diag.Warnings, "\n"), `"GHOST"`)
}

func TestParse_NoOrganizationsIsFatal(t *testing.T) {
	manifest := `<manifest>
  <organizations/>
  <resources><resource identifier="R1" href="index.html"/></resources>
</manifest>`

	diag := types.NewDiagnostics()
	_, err := Parse([]byte(manifest), "course-1", diag)
	require.Error(t, err)
	assert.Equal(t, scormerr.CodeNoOrganizations, scormerr.CodeOf(err))
}

func TestParse_DanglingResourceRefKeepsItem(t *testing.T) {
	manifest := `<manifest>
  <organizations default="O">
    <organization identifier="O">
      <title>Org</title>
      <item identifier="GOOD" identifierref="R1"><title>Good</title></item>
      <item identifier="DANGLING" identifierref="NOPE"><title>Broken</title></item>
    </organization>
  </organizations>
  <resources><resource identifier="R1" href="index.html"/></resources>
</manifest>`

	diag := types.NewDiagnostics()
	doc, err := Parse([]byte(manifest), "course-1", diag)
	require.NoError(t, err)

	require.Len(t, doc.Organizations[0].Items, 2)
	assert.Equal(t, "index.html", doc.Organizations[0].Items[0].Href)
	assert.Empty(t, doc.Organizations[0].Items[1].Href, "dangling ref keeps an empty href, not a dropped item")
	assert.Contains(t, strings.Join(diag.Warnings, "\n"), `"NOPE"`)
}

func TestParse_MalformedRecoversWhatItCan(t *testing.T) {
	// Truncated inside a start tag: one organization is already complete.
	manifest := `<manifest>
  <organizations default="O1">
    <organization identifier="O1">
      <title>Recovered</title>
      <item identifier="I1" identifierref="R1"><title>One</title></item>
    </organization>
    <organization identifier="O2"`

	diag := types.NewDiagnostics()
	doc, err := Parse([]byte(manifest), "course-1", diag)
	require.NoError(t, err)

	require.NotEmpty(t, doc.Organizations)
	assert.Equal(t, "O1", doc.Organizations[0].ID)
	assert.Contains(t, strings.Join(diag.Warnings, "\n"), "malformed")
}

func TestParse_DefaultsForMissingMetadata(t *testing.T) {
	manifest := `<manifest>
  <organizations default="O">
    <organization identifier="O">
      <item identifier="I1" identifierref="R1"/>
    </organization>
  </organizations>
  <resources><resource identifier="R1" href="index.html"/></resources>
</manifest>`

	diag := types.NewDiagnostics()
	doc, err := Parse([]byte(manifest), "intro-to-first-aid", diag)
	require.NoError(t, err)

	assert.Equal(t, "Intro To First Aid", doc.Title, "title derives from the course ID")
	assert.Equal(t, DefaultSchemaVersion, doc.SchemaVersion)

	joined := strings.Join(diag.Warnings, "\n")
	assert.Contains(t, joined, "no course title")
	assert.Contains(t, joined, "no schema version")
}

func TestParse_InlineMarkupInTitlesKeepsFullText(t *testing.T) {
	manifest := `<manifest>
  <organizations default="O">
    <organization identifier="O">
      <title>First <b>Aid</b> Basics</title>
      <item identifier="I1" identifierref="R1">
        <title>Getting <em>Started</em> Now</title>
      </item>
    </organization>
  </organizations>
  <resources><resource identifier="R1" href="index.html"/></resources>
</manifest>`

	diag := types.NewDiagnostics()
	doc, err := Parse([]byte(manifest), "course-1", diag)
	require.NoError(t, err)

	assert.Equal(t, "First Aid Basics", doc.Organizations[0].Title)
	require.Len(t, doc.Organizations[0].Items, 1)
	assert.Equal(t, "Getting Started Now", doc.Organizations[0].Items[0].Title,
		"text after a nested element must not be dropped")
}

func TestParse_NestedItemsFlattenInDocumentOrder(t *testing.T) {
	manifest := `<manifest>
  <organizations default="O">
    <organization identifier="O">
      <title>Org</title>
      <item identifier="PARENT" identifierref="R1">
        <title>Parent</title>
        <item identifier="CHILD" identifierref="R2"><title>Child</title></item>
      </item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="R1" href="a.html"/>
    <resource identifier="R2" href="b.html"/>
  </resources>
</manifest>`

	diag := types.NewDiagnostics()
	doc, err := Parse([]byte(manifest), "course-1", diag)
	require.NoError(t, err)

	require.Len(t, doc.Organizations[0].Items, 2)
	assert.Equal(t, "PARENT", doc.Organizations[0].Items[0].ID)
	assert.Equal(t, "CHILD", doc.Organizations[0].Items[1].ID)
	assert.Equal(t, "b.html", doc.Organizations[0].Items[1].Href)
}
