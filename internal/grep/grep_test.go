package grep

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/cellrev/internal/cells"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
)

func setup(t *testing.T) service.Service {
	t.Helper()
	ctx := context.Background()
	svc, err := cells.Open(filepath.Join(t.TempDir(), "cellrev.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	_, err = svc.Import(ctx, []store.CellInput{
		{ID: "1", Primary: "Save the file", Secondary: "Guardar el fichero"},
		{ID: "2", Primary: "Line one\nLine two\nLine three\nLine four\nLine five", Secondary: "Línea uno\nLínea dos\nLínea tres\nLínea cuatro\nFile cinco"},
		{ID: "3", Primary: "Delete file", Secondary: "Borrar archivo"},
	}, service.ImportOptions{Author: "test"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "3"))
	return svc
}

func TestRun(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	var b bytes.Buffer
	res, err := Run(ctx, &b, svc, "fichero", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, res.IDs())
	assert.Equal(t, "1:secondary:1:Guardar el fichero\n", b.String())

	b.Reset()
	res, err = Run(ctx, &b, svc, "file", Options{Column: ColumnBoth, IgnoreCase: true})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "primary", res.Hits[0].Column)
	assert.Equal(t, "2", res.Hits[1].ID)
	assert.Equal(t, 5, res.Hits[1].Matches[0].Line)

	res, err = Run(ctx, &b, svc, "file", Options{Column: "primary", IncludeAll: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, res.IDs(), "deleted cells with -A")

	res, err = Run(ctx, &b, svc, "Línea", Options{Prefix: "2", Invert: true})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, []Match{{Line: 5, Content: "File cinco"}}, res.Hits[0].Matches)
}

func TestRun_Output(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	var b bytes.Buffer

	_, err := Run(ctx, &b, svc, "(?i)l[ií]nea", Options{CountOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "2:secondary:4\n", b.String())

	b.Reset()
	_, err = Run(ctx, &b, svc, "el|dos", Options{IDsOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", b.String())

	b.Reset()
	_, err = Run(ctx, &b, svc, "uno|cinco", Options{Prefix: "2", Context: 1})
	require.NoError(t, err)
	assert.Equal(t, "2:secondary:1:Línea uno\n"+
		"2:secondary-2-Línea dos\n"+
		"--\n"+
		"2:secondary-4-Línea cuatro\n"+
		"2:secondary:5:File cinco\n", b.String())
}

func TestRun_Errors(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	var b bytes.Buffer

	_, err := Run(ctx, &b, svc, "(", Options{})
	assert.Error(t, err)
	_, err = Run(ctx, &b, svc, "x", Options{Column: "third"})
	assert.ErrorIs(t, err, ErrInvalidColumn)
	_, err = Run(ctx, &b, svc, "x", Options{Context: -1})
	assert.Error(t, err)
}
