package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jpl-au/cellrev/internal/store"
	"github.com/jpl-au/cellrev/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// setupStore creates a temporary SQLite store for testing.
func setupStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { s.Close() })
	return s
}

func put(t *testing.T, s *store.SQLiteStore, id string, row int, primary, secondary string) *store.Cell {
	t.Helper()
	c, err := s.Put(context.Background(), store.CellInput{ID: id, Row: row, Primary: primary, Secondary: secondary},
		store.PutOptions{Author: "alice", Message: "import", Ratio: 50, Status: "different"})
	require.NoError(t, err)
	return c
}

func ptr(f float64) *float64 { return &f }

func TestStore_PutAndLatest(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	in := store.CellInput{ID: " 12 ", Row: 3, Primary: "Hello world", Secondary: "Hello there", Auxiliary: "ctx"}
	c, err := s.Put(ctx, in, store.PutOptions{Author: "alice", Message: "import", Ratio: 54.5, Status: "different"})
	require.NoError(t, err)
	assert.Equal(t, "12", c.CellID)
	assert.Equal(t, 1, c.Version)
	assert.NotEmpty(t, c.Key)

	got, err := s.Latest(ctx, "12", false)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got.Primary)
	assert.Equal(t, "Hello there", got.Secondary)
	assert.Equal(t, "ctx", got.Auxiliary)
	assert.Equal(t, 3, got.Row)
	assert.InDelta(t, 54.5, got.Ratio, 0.001)
	assert.Equal(t, "different", got.Status)
	assert.Equal(t, "alice", got.Author)
	assert.Equal(t, "import", got.Message)
	assert.Nil(t, got.DeletedAt)

	byKey, err := s.ByKey(ctx, c.Key)
	require.NoError(t, err)
	assert.Equal(t, "12", byKey.CellID)
}

func TestStore_PutExisting(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "a", 1, "one", "uno")

	_, err := s.Put(ctx, store.CellInput{ID: "a", Primary: "two"}, store.PutOptions{})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	c, err := s.Put(ctx, store.CellInput{ID: "a", Primary: "two"}, store.PutOptions{Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Version)
	assert.Equal(t, "different", c.Status, "empty status defaults to different")
}

func TestStore_PutValidation(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   store.CellInput
		opts store.PutOptions
		err  error
	}{
		{"empty id", store.CellInput{ID: "  "}, store.PutOptions{}, validate.ErrInvalidCellID},
		{"long id", store.CellInput{ID: "abcdef"}, store.PutOptions{MaxID: 4}, validate.ErrCellIDTooLong},
		{"large text", store.CellInput{ID: "x", Primary: "12345"}, store.PutOptions{MaxContent: 4}, store.ErrContentTooLarge},
		{"invalid utf8", store.CellInput{ID: "x", Secondary: "\xff"}, store.PutOptions{}, validate.ErrInvalidText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Put(ctx, tt.in, tt.opts)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestStore_WriteSecondary(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "1", 1, "The cat", "Le chat")

	c, err := s.WriteSecondary(ctx, "1", "Le chien", store.WriteOptions{Author: "bob", Message: "fix", Ratio: 20, Status: "different"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Version)
	assert.Equal(t, "The cat", c.Primary, "primary carried forward")

	latest, err := s.Latest(ctx, "1", false)
	require.NoError(t, err)
	assert.Equal(t, "Le chien", latest.Secondary)
	assert.Equal(t, "bob", latest.Author)

	v1, err := s.Version(ctx, "1", 1)
	require.NoError(t, err)
	assert.Equal(t, "Le chat", v1.Secondary)

	_, err = s.WriteSecondary(ctx, "missing", "x", store.WriteOptions{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.WriteSecondary(ctx, "1", "too long", store.WriteOptions{MaxContent: 3})
	assert.ErrorIs(t, err, store.ErrContentTooLarge)
}

func TestStore_History(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "h", 1, "p", "s1")
	for _, text := range []string{"s2", "s3"} {
		_, err := s.WriteSecondary(ctx, "h", text, store.WriteOptions{})
		require.NoError(t, err)
	}

	hist, err := s.History(ctx, "h", 0, false)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, 3, hist[0].Version)
	assert.Equal(t, "s1", hist[2].Secondary)

	limited, err := s.History(ctx, "h", 2, false)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_List(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	put(t, s, "s1!b", 2, "beta", "beta")
	put(t, s, "s1!a", 1, "alpha", "alfa")
	put(t, s, "s2!c", 3, "gamma 50%", "gamma")
	require.NoError(t, s.SetRatio(ctx, "s1!b", 100, "same"))
	require.NoError(t, s.SetRatio(ctx, "s1!a", 80, "different"))
	require.NoError(t, s.SetRatio(ctx, "s2!c", 10, "different"))

	ids := func(cells []store.Cell) []string {
		var out []string
		for _, c := range cells {
			out = append(out, c.CellID)
		}
		return out
	}

	tests := []struct {
		name string
		opts store.ListOptions
		want []string
	}{
		{"row order", store.ListOptions{}, []string{"s1!a", "s1!b", "s2!c"}},
		{"prefix", store.ListOptions{Prefix: "s1!"}, []string{"s1!a", "s1!b"}},
		{"query", store.ListOptions{Query: "alf"}, []string{"s1!a"}},
		{"query escapes like", store.ListOptions{Query: "50%"}, []string{"s2!c"}},
		{"status", store.ListOptions{Status: "same"}, []string{"s1!b"}},
		{"min ratio", store.ListOptions{MinRatio: ptr(80)}, []string{"s1!a", "s1!b"}},
		{"max ratio", store.ListOptions{MaxRatio: ptr(50)}, []string{"s2!c"}},
		{"ratio desc", store.ListOptions{Sort: store.SortRatioDesc}, []string{"s1!b", "s1!a", "s2!c"}},
		{"ratio asc", store.ListOptions{Sort: store.SortRatioAsc}, []string{"s2!c", "s1!a", "s1!b"}},
		{"limit offset", store.ListOptions{Limit: 1, Offset: 1}, []string{"s1!b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err := s.List(ctx, store.ListOptions{Sort: "bogus"})
	assert.Error(t, err)
}

func TestStore_ListApprovalFilter(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "1", 1, "a", "a")
	put(t, s, "2", 2, "b", "b")
	require.NoError(t, s.SetApproval(ctx, "1", "secondary", "red", "alice"))

	rejected, err := s.List(ctx, store.ListOptions{Approval: validate.ApprovalRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "1", rejected[0].CellID)

	none, err := s.List(ctx, store.ListOptions{Approval: validate.ApprovalNone})
	require.NoError(t, err)
	require.Len(t, none, 1)
	assert.Equal(t, "2", none[0].CellID)

	primary, err := s.List(ctx, store.ListOptions{ApprovalColumn: "primary", Approval: validate.ApprovalNone})
	require.NoError(t, err)
	assert.Len(t, primary, 2)
}

func TestStore_DeleteRestore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "d", 1, "p", "s")

	require.NoError(t, s.Delete(ctx, "d"))
	_, err := s.Latest(ctx, "d", false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	deleted, err := s.Latest(ctx, "d", true)
	require.NoError(t, err)
	assert.NotNil(t, deleted.DeletedAt)

	ok, err := s.Exists(ctx, "d")
	require.NoError(t, err)
	assert.False(t, ok)

	only, err := s.List(ctx, store.ListOptions{DeletedOnly: true})
	require.NoError(t, err)
	assert.Len(t, only, 1)

	assert.ErrorIs(t, s.Delete(ctx, "d"), store.ErrNotFound)
	require.NoError(t, s.Restore(ctx, "d"))
	assert.ErrorIs(t, s.Restore(ctx, "d"), store.ErrNotFound)

	ok, err = s.Exists(ctx, "d")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_IDsAndCount(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "b", 2, "", "")
	put(t, s, "a", 5, "", "")
	put(t, s, "ab", 1, "", "")

	ids, err := s.IDs(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "b", "a"}, ids)

	n, err := s.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_SetRatio(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "r", 1, "x", "x")

	require.NoError(t, s.SetRatio(ctx, "r", 100, "same"))
	c, err := s.Latest(ctx, "r", false)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Version, "ratio updates do not create versions")
	assert.InDelta(t, 100, c.Ratio, 0.001)
	assert.Equal(t, "same", c.Status)

	assert.ErrorIs(t, s.SetRatio(ctx, "missing", 1, "same"), store.ErrNotFound)
}

func TestStore_Comments(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "c", 1, "", "")

	empty, err := s.Comment(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, empty.Text)

	require.NoError(t, s.SetComment(ctx, "c", "check tone", "alice"))
	require.NoError(t, s.SetComment(ctx, "c", "check tone again", "bob"))
	got, err := s.Comment(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "check tone again", got.Text)
	assert.Equal(t, "bob", got.Author)

	require.NoError(t, s.SetComment(ctx, "c", "   ", "bob"))
	got, err = s.Comment(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, got.Text)
}

func TestStore_Approvals(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "ap", 1, "", "")

	a, err := s.Approvals(ctx, "ap")
	require.NoError(t, err)
	assert.Equal(t, store.Approvals{Primary: "none", Secondary: "none"}, a)
	assert.True(t, a.Unmarked())

	require.NoError(t, s.SetApproval(ctx, "ap", "a", "green", "alice"))
	require.NoError(t, s.SetApproval(ctx, "ap", "secondary", "caution", "alice"))
	a, err = s.Approvals(ctx, "ap")
	require.NoError(t, err)
	assert.Equal(t, store.Approvals{Primary: "affirmed", Secondary: "caution"}, a)
	assert.False(t, a.Unmarked())

	// Writing text leaves markers alone.
	_, err = s.WriteSecondary(ctx, "ap", "new", store.WriteOptions{})
	require.NoError(t, err)
	a, err = s.Approvals(ctx, "ap")
	require.NoError(t, err)
	assert.Equal(t, "caution", a.Secondary)

	require.NoError(t, s.SetApproval(ctx, "ap", "secondary", "none", "alice"))
	require.NoError(t, s.SetApproval(ctx, "ap", "primary", "none", "alice"))
	a, err = s.Approvals(ctx, "ap")
	require.NoError(t, err)
	assert.Equal(t, store.NoApprovals, a, "cleared markers read the same as never-set ones")

	assert.ErrorIs(t, s.SetApproval(ctx, "ap", "third", "red", ""), validate.ErrInvalidColumn)
	assert.ErrorIs(t, s.SetApproval(ctx, "ap", "primary", "purple", ""), validate.ErrInvalidApproval)
}

func TestStore_Vacuum(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	put(t, s, "keep", 1, "", "")
	put(t, s, "gone", 2, "", "")
	_, err := s.WriteSecondary(ctx, "gone", "v2", store.WriteOptions{})
	require.NoError(t, err)
	require.NoError(t, s.SetComment(ctx, "gone", "note", "alice"))
	require.NoError(t, s.SetApproval(ctx, "gone", "primary", "red", "alice"))
	require.NoError(t, s.Delete(ctx, "gone"))

	// Recent deletions survive an age filter.
	hour := time.Hour
	n, err := s.Vacuum(ctx, &hour, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Vacuum(ctx, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n, "two versions, one comment, one approval")

	_, err = s.Latest(ctx, "gone", true)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Latest(ctx, "keep", false)
	assert.NoError(t, err)
}

func TestStore_Stats(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Cells)
	assert.Nil(t, empty.OldestCell)

	put(t, s, "1", 1, "", "")
	put(t, s, "2", 2, "", "")
	put(t, s, "3", 3, "", "")
	require.NoError(t, s.SetRatio(ctx, "1", 100, "same"))
	require.NoError(t, s.SetRatio(ctx, "2", 0, "different"))
	_, err = s.WriteSecondary(ctx, "2", "v2", store.WriteOptions{Author: "bob", Ratio: 20})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "3"))
	require.NoError(t, s.SetComment(ctx, "1", "ok", "alice"))
	require.NoError(t, s.SetApproval(ctx, "1", "secondary", "affirmed", "alice"))
	require.NoError(t, s.SetApproval(ctx, "2", "secondary", "rejected", "alice"))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Cells)
	assert.Equal(t, int64(1), st.Deleted)
	assert.Equal(t, int64(4), st.TotalVersions)
	assert.Equal(t, int64(1), st.Same)
	assert.Equal(t, int64(1), st.Different)
	assert.InDelta(t, 60, st.MeanRatio, 0.001)
	assert.Equal(t, int64(1), st.Comments)
	assert.Equal(t, int64(1), st.Affirmed)
	assert.Equal(t, int64(1), st.Rejected)
	assert.Equal(t, int64(2), st.Authors)
	assert.NotNil(t, st.NewestCell)
}

func TestStore_Checkpoint(t *testing.T) {
	s := setupStore(t)
	put(t, s, "cp", 1, "", "")
	assert.NoError(t, s.Checkpoint(context.Background()))
}

func TestStore_Migrate(t *testing.T) {
	s := setupStore(t)
	put(t, s, "m1", 1, "a", "b")

	// A second Init applies nothing and keeps the data.
	require.NoError(t, s.Init())
	var v int
	require.NoError(t, s.DB().QueryRow(`PRAGMA user_version`).Scan(&v))
	assert.Equal(t, 3, v)
	n, err := s.Count(context.Background(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.DB().Exec(`PRAGMA user_version = 99`)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Init(), store.ErrSchemaTooNew)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	const cells, rounds = 20, 5
	for i := range cells {
		put(t, s, fmt.Sprintf("c%d", i), i, "Hello world", "Hello")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(10)
	for r := range rounds {
		for i := range cells {
			g.Go(func() error {
				_, err := s.WriteSecondary(gctx, fmt.Sprintf("c%d", i), fmt.Sprintf("Hello %d", r),
					store.WriteOptions{Author: "bob", Status: "different"})
				return err
			})
		}
	}
	require.NoError(t, g.Wait())

	for i := range cells {
		c, err := s.Latest(ctx, fmt.Sprintf("c%d", i), false)
		require.NoError(t, err)
		assert.Equal(t, rounds+1, c.Version)
	}
}

func TestStore_PragmasOnEveryConnection(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// Hold two connections at once so the pool must open a second one.
	c1, err := s.DB().Conn(ctx)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := s.DB().Conn(ctx)
	require.NoError(t, err)
	defer c2.Close()

	for _, c := range []*sql.Conn{c1, c2} {
		var timeout int
		require.NoError(t, c.QueryRowContext(ctx, `PRAGMA busy_timeout`).Scan(&timeout))
		assert.Equal(t, 5000, timeout)
		var mode string
		require.NoError(t, c.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
		assert.Equal(t, "wal", mode)
	}
}
