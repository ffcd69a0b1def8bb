package sed_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/cellrev/internal/cells"
	"github.com/jpl-au/cellrev/internal/sed"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
)

func setupService(t *testing.T) service.Service {
	t.Helper()
	svc, err := cells.Open(filepath.Join(t.TempDir(), "cellrev.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	_, err = svc.Import(context.Background(), []store.CellInput{
		{ID: "1", Primary: "Save the file", Secondary: "Guardar el fichero"},
		{ID: "2", Primary: "Open the file", Secondary: "Abrir el fichero, luego otro fichero"},
		{ID: "3", Primary: "Quit", Secondary: "Salir"},
	}, service.ImportOptions{Author: "test"})
	require.NoError(t, err)
	return svc
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		expr string
		want sed.Expr
		err  error
	}{
		{"s/old/new/", sed.Expr{Old: "old", New: "new"}, nil},
		{"s/old/new", sed.Expr{Old: "old", New: "new"}, nil},
		{"s/old//", sed.Expr{Old: "old"}, nil},
		{"s/old/new/g", sed.Expr{Old: "old", New: "new", Global: true}, nil},
		{"s/old/new/gi", sed.Expr{Old: "old", New: "new", Global: true, IgnoreCase: true}, nil},
		{"s|a/b|c|", sed.Expr{Old: "a/b", New: "c"}, nil},
		{`s/a\/b/c/`, sed.Expr{Old: "a/b", New: "c"}, nil},
		{"s/x", sed.Expr{}, sed.ErrInvalidExpr},
		{"s//new/", sed.Expr{}, sed.ErrInvalidExpr},
		{"s/a/b/q", sed.Expr{}, sed.ErrInvalidExpr},
		{"y/abc/xyz/", sed.Expr{}, sed.ErrUnsupportedCommand},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := sed.ParseExpr(tt.expr)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExprApply(t *testing.T) {
	e := sed.Expr{Old: "fichero", New: "archivo"}
	got, ok := e.Apply("un fichero y otro fichero")
	assert.True(t, ok)
	assert.Equal(t, "un archivo y otro fichero", got)

	e.Global = true
	got, _ = e.Apply("un fichero y otro fichero")
	assert.Equal(t, "un archivo y otro archivo", got)

	e = sed.Expr{Old: "FICHERO", New: "archivo", IgnoreCase: true}
	got, ok = e.Apply("Fichero y fichero")
	assert.True(t, ok)
	assert.Equal(t, "archivo y fichero", got)

	_, ok = e.Apply("nada")
	assert.False(t, ok)
}

func TestRun(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	var buf bytes.Buffer
	res, err := sed.Run(ctx, &buf, svc, []string{"1", "2", "3"}, "s/fichero/archivo/g", sed.Options{Author: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, res.Edited)
	assert.Equal(t, []string{"3"}, res.Unchanged)
	assert.Empty(t, res.Failed)
	assert.Contains(t, buf.String(), "Edited 2 v2")

	c, err := svc.Get(ctx, "2", false)
	require.NoError(t, err)
	assert.Equal(t, "Abrir el archivo, luego otro archivo", c.Secondary)
	assert.Equal(t, "alice", c.Author)

	// Unmatched cells get no new version.
	c, err = svc.Get(ctx, "3", false)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Version)
}

func TestRun_Errors(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	var buf bytes.Buffer

	_, err := sed.Run(ctx, &buf, svc, []string{"1", "3"}, "s/ventana/window/", sed.Options{Author: "alice"})
	assert.ErrorIs(t, err, sed.ErrTextNotFound)

	_, err = sed.Run(ctx, &buf, svc, []string{"1"}, "p", sed.Options{Author: "alice"})
	assert.ErrorIs(t, err, sed.ErrInvalidExpr)

	res, err := sed.Run(ctx, &buf, svc, []string{"1", "missing"}, "s/el/un/", sed.Options{Author: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, res.Edited)
	assert.Contains(t, res.Failed, "missing")
}
