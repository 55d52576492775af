package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "import")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "processed"), 0o755))
	for _, name := range []string{"balances.csv", "april.xlsx", "readme.txt", ".gitkeep"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := DefaultRegistry().Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 2)
	names := []string{files[0].Name, files[1].Name}
	assert.ElementsMatch(t, []string{"balances.csv", "april.xlsx"}, names)
	assert.Equal(t, int64(1), files[0].Size)
}

func TestScan_NoImportDir(t *testing.T) {
	files, err := DefaultRegistry().Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "import"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "import", "a.csv"), []byte("x"), 0o644))

	require.NoError(t, MarkProcessed(root, "a.csv"))

	_, err := os.Stat(filepath.Join(root, "import", "a.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "import", "processed", "a.csv"))
	assert.NoError(t, err)
}
