package decode

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.zip")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractZip(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"addresses.csv":  "NUMBER,STREET\n12,ELM ST\n",
		"docs/readme.md": "notes",
	})
	dest := t.TempDir()

	files, err := ExtractZip(archive, dest)
	require.NoError(t, err)
	require.Len(t, files, 2)

	data, err := os.ReadFile(filepath.Join(dest, "addresses.csv"))
	require.NoError(t, err)
	assert.Equal(t, "NUMBER,STREET\n12,ELM ST\n", string(data))

	_, err = os.Stat(filepath.Join(dest, "docs", "readme.md"))
	assert.NoError(t, err)
}

func TestExtractZip_RejectsPathTraversal(t *testing.T) {
	archive := buildZip(t, map[string]string{"../escape.txt": "nope"})

	_, err := ExtractZip(archive, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal archive path")
}

func TestExtractZip_MissingArchive(t *testing.T) {
	_, err := ExtractZip(filepath.Join(t.TempDir(), "nope.zip"), t.TempDir())
	assert.Error(t, err)
}
