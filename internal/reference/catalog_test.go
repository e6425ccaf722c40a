package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadEnumCatalog(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "genres.yaml", `
items:
  - code: poetry
    name: Poetry
    order: 2
  - code: novel
    name: Novel
    order: 1
  - code: drama
    name: Drama
    order: 2
`)
	writeFile(t, dir, "status.yml", `
name: book_status
items:
  - code: draft
  - code: published
`)
	writeFile(t, dir, "notes.txt", "ignored")

	cat, err := LoadEnumCatalog(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"book_status", "genres"}, cat.Names())

	genres, err := cat.Values("genres")
	require.NoError(t, err)
	assert.Equal(t, []string{"novel", "poetry", "drama"}, genres)

	status, err := cat.Values("book_status")
	require.NoError(t, err)
	assert.Equal(t, []string{"draft", "published"}, status)

	_, err = cat.Values("missing")
	assert.Error(t, err)
}

func TestLoadEnumCatalogDuplicate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: x\nitems:\n  - code: a\n")
	writeFile(t, dir, "b.yaml", "name: x\nitems:\n  - code: b\n")

	_, err := LoadEnumCatalog(dir)
	assert.ErrorContains(t, err, `duplicate enum catalog "x"`)
}

func TestLoadEnumCatalogEmptyDir(t *testing.T) {
	cat, err := LoadEnumCatalog("")
	require.NoError(t, err)
	assert.Empty(t, cat)
}

func TestValuesWithoutCodes(t *testing.T) {
	dir, err := Parse([]byte("items:\n  - name: Nameless\n"), "empty")
	require.NoError(t, err)
	assert.Equal(t, "empty", dir.Name)

	_, err = Catalog{"empty": dir}.Values("empty")
	assert.Error(t, err)
}
