package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension_RecursesAndSorts(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	for _, name := range []string{"b.json", "a.json", "notes.txt", filepath.Join("nested", "c.json")} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o600))
	}

	// --- Act ---
	files, err := FindFilesByExtension(dir, ".json")

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "a.json"), files[0])
	assert.Equal(t, filepath.Join(dir, "b.json"), files[1])
	assert.Equal(t, filepath.Join(dir, "nested", "c.json"), files[2])
}

func TestFindFilesByExtension_MissingRootFails(t *testing.T) {
	t.Parallel()

	_, err := FindFilesByExtension(filepath.Join(t.TempDir(), "absent"), ".json")
	assert.Error(t, err)
}
