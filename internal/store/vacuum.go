// vacuum.go permanently removes soft-deleted cells.
//
// Soft delete keeps cells recoverable; vacuum removes that safety net and
// should only run on request. olderThan keeps recent deletions recoverable.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Vacuum deletes soft-deleted cell versions, then drops comments and
// approvals whose cell no longer exists. Returns the number of rows removed.
//   - olderThan: if non-nil, only cells deleted before now-olderThan
//   - prefix: if non-empty, only cell ids with this prefix
func (s *SQLiteStore) Vacuum(ctx context.Context, olderThan *time.Duration, prefix string) (int64, error) {
	var total int64

	err := s.Tx(ctx, func(tx *sql.Tx) error {
		q := `DELETE FROM cells WHERE deleted_at IS NOT NULL`
		var args []any
		if olderThan != nil {
			q += ` AND deleted_at < ?`
			args = append(args, time.Now().Add(-*olderThan).Unix())
		}
		if prefix != "" {
			q += ` AND cell_id LIKE ? ESCAPE '\'`
			args = append(args, escapeLike(prefix)+"%")
		}

		stmts := []struct {
			what  string
			query string
			args  []any
		}{
			{"cells", q, args},
			{"orphan comments", `DELETE FROM comments WHERE cell_id NOT IN (SELECT DISTINCT cell_id FROM cells)`, nil},
			{"orphan approvals", `DELETE FROM approvals WHERE cell_id NOT IN (SELECT DISTINCT cell_id FROM cells)`, nil},
		}
		for _, st := range stmts {
			res, err := tx.ExecContext(ctx, st.query, st.args...)
			if err != nil {
				return fmt.Errorf("vacuum %s: %w", st.what, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				total += n
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
