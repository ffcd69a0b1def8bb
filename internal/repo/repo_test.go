package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBFileName(t *testing.T) {
	assert.Equal(t, "cellrev.db", DBFileName(""))
	assert.Equal(t, "cellrev-sheet1.db", DBFileName("sheet1"))
	assert.Equal(t, "custom.db", DBFileName("custom.db"))
}

func TestInitAndDiscover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(false, "", false, dir))
	assert.FileExists(t, filepath.Join(dir, Dir, DBFile))
	assert.FileExists(t, filepath.Join(dir, Dir, ".gitignore"))

	err := Init(false, "", false, dir)
	assert.ErrorContains(t, err, "already exists")
	require.NoError(t, Init(true, "", false, dir))

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	path, err := Discover("")
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(filepath.Join(dir, Dir, DBFile))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Discover("missing")
	assert.ErrorIs(t, err, ErrNotInitialised)
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(false, "sheet1", false, dir))
	t.Chdir(dir)

	path, err := Locate(".", "sheet1")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, filepath.Join(Dir, "cellrev-sheet1.db"), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))

	_, err = Locate(".", "")
	assert.ErrorIs(t, err, ErrNotInitialised)
	_, err = Locate(t.TempDir(), "sheet1")
	assert.ErrorIs(t, err, ErrNotInitialised)
}

func TestLocalDatabases(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(false, "", false, dir))
	require.NoError(t, Init(false, "sheet2", true, dir))
	root := filepath.Join(dir, Dir)

	dbs, err := ListDBs(root)
	require.NoError(t, err)
	require.Len(t, dbs, 2)
	local := map[string]bool{}
	for _, d := range dbs {
		local[d.Name] = d.Local
	}
	assert.Equal(t, map[string]bool{"": false, "sheet2": true}, local)

	// Idempotent.
	require.NoError(t, IgnoreDB("sheet2", root))
	b, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, 1, countLines(string(b), "cellrev-sheet2.db"))

	require.NoError(t, UnignoreDB("sheet2", root))
	ignored, err := IsIgnored("sheet2", root)
	require.NoError(t, err)
	assert.False(t, ignored)

	b, err = os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.NotContains(t, string(b), localMarker)
	assert.Contains(t, string(b), "config.yaml")
}

func countLines(s, want string) int {
	n := 0
	for _, l := range strings.Split(s, "\n") {
		if l == want {
			n++
		}
	}
	return n
}
