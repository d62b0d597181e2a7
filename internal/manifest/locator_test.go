package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scormkit/scormkit/internal/scormerr"
	"github.com/scormkit/scormkit/internal/types"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("<manifest/>"), 0o644))
}

func TestLocate_TopLevel(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "imsmanifest.xml"))

	diag := types.NewDiagnostics()
	manifestPath, packageRoot, err := Locate(root, diag)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "imsmanifest.xml"), manifestPath)
	assert.Equal(t, root, packageRoot)
	assert.Empty(t, diag.Warnings)
}

func TestLocate_NestedManifestMovesPackageRoot(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "content", "pkg", "imsmanifest.xml"))

	diag := types.NewDiagnostics()
	_, packageRoot, err := Locate(root, diag)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "content", "pkg"), packageRoot)
	assert.Equal(t, packageRoot, diag.PackageRootLocation)
}

func TestLocate_CaseInsensitive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "IMSMANIFEST.XML"))

	diag := types.NewDiagnostics()
	manifestPath, _, err := Locate(root, diag)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "IMSMANIFEST.XML"), manifestPath)
}

func TestLocate_NotFound(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "content", "index.html"))

	diag := types.NewDiagnostics()
	_, _, err := Locate(root, diag)
	require.Error(t, err)
	assert.Equal(t, scormerr.CodeManifestNotFound, scormerr.CodeOf(err))
}

func TestLocate_MultipleManifestsPicksShallowest(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "deep", "nested", "imsmanifest.xml"))
	touch(t, filepath.Join(root, "shallow", "imsmanifest.xml"))

	diag := types.NewDiagnostics()
	_, packageRoot, err := Locate(root, diag)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "shallow"), packageRoot)

	require.Len(t, diag.Warnings, 1)
	assert.Contains(t, diag.Warnings[0], "2 manifests")
	assert.Contains(t, diag.Warnings[0], "shallow/imsmanifest.xml")
}

func TestLocate_EqualDepthTieBreaksLexicographically(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "bbb", "imsmanifest.xml"))
	touch(t, filepath.Join(root, "aaa", "imsmanifest.xml"))

	diag := types.NewDiagnostics()
	_, packageRoot, err := Locate(root, diag)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(packageRoot, "aaa"), "lexicographic tie-break should pick aaa, got %s", packageRoot)
}
