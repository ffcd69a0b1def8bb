package log

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempDB(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	orig := dbPathFunc
	dbPathFunc = func() string {
		return filepath.Join(tmpDir, "log", "test.db")
	}
	t.Cleanup(func() {
		Close()
		dbPathFunc = orig
	})
}

func TestLogger(t *testing.T) {
	useTempDB(t)

	t.Run("open and close", func(t *testing.T) {
		require.NoError(t, Open())
		defer Close()
		assert.FileExists(t, DBPath())
	})

	t.Run("log entry", func(t *testing.T) {
		require.NoError(t, Open())
		defer Close()
		SetProject("/test/project/.cellrev")

		Log(Entry{
			Source:  "cell:cat",
			Author:  "test-user",
			Action:  "read",
			Cell:    "row-12",
			Version: 3,
			Success: true,
		})

		db, err := sql.Open("sqlite", DBPath())
		require.NoError(t, err)
		defer db.Close()

		var source, action, cell string
		var version, success int
		err = db.QueryRow("SELECT source, action, cell, version, success FROM log ORDER BY id DESC LIMIT 1").
			Scan(&source, &action, &cell, &version, &success)
		require.NoError(t, err)
		assert.Equal(t, "cell:cat", source)
		assert.Equal(t, "read", action)
		assert.Equal(t, "row-12", cell)
		assert.Equal(t, 3, version)
		assert.Equal(t, 1, success)
	})

	t.Run("log without logger is noop", func(t *testing.T) {
		Close()
		Log(Entry{Source: "test:cmd", Action: "test", Success: true})
		entries, err := Recent(10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("open is idempotent", func(t *testing.T) {
		require.NoError(t, Open())
		require.NoError(t, Open())
		Close()
	})
}

func TestBuilder(t *testing.T) {
	useTempDB(t)
	require.NoError(t, Open())
	SetProject("/test/project/.cellrev")

	Event("cell:save", "write").
		Author("ana").
		Cell("r1").
		ResultVersion(2).
		Write(nil)

	Event("generate:regenerate", "generate").
		Author("ana").
		Cell("r2").
		Detail("variant", "alt1").
		Detail("count", 42).
		Write(errors.New("provider unavailable"))

	entries, err := Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	failed := entries[0]
	assert.Equal(t, "generate:regenerate", failed.Source)
	assert.False(t, failed.Success)
	assert.Equal(t, "provider unavailable", failed.Error)
	assert.Equal(t, "alt1", failed.Detail["variant"])
	assert.EqualValues(t, 42, failed.Detail["count"])

	saved := entries[1]
	assert.Equal(t, "cell:save", saved.Source)
	assert.Equal(t, "ana", saved.Author)
	assert.Equal(t, "r1", saved.Cell)
	assert.Equal(t, 2, saved.ResultVersion)
	assert.True(t, saved.Success)
	assert.GreaterOrEqual(t, saved.Duration(), time.Duration(0))
}

func TestRecentScopedToProject(t *testing.T) {
	useTempDB(t)
	require.NoError(t, Open())

	SetProject("/a/.cellrev")
	Event("cell:cat", "read").Cell("x").Write(nil)
	SetProject("/b/.cellrev")
	Event("cell:cat", "read").Cell("y").Write(nil)

	entries, err := Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "y", entries[0].Cell)
}

func TestHash(t *testing.T) {
	h1 := hash("/home/user/project/.cellrev")
	h2 := hash("/home/user/project/.cellrev")
	h3 := hash("/home/user/other/.cellrev")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 16)
}

func TestDBPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	orig := dbPathFunc
	dbPathFunc = defaultDBPath
	defer func() { dbPathFunc = orig }()

	assert.Equal(t, filepath.Join(home, ".cellrev", "log", "cellrev-log.db"), DBPath())
}
