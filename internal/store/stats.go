// stats.go implements aggregate queries for `cellrev db stats` and the web
// dashboard. None of them load cell text.

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Stats returns aggregate statistics over the latest version of each cell.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var mean sql.NullFloat64
	var oldest, newest sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(c.status = 'same'), 0),
			COALESCE(SUM(c.status = 'different'), 0),
			AVG(c.ratio),
			MIN(c.created_at),
			MAX(c.created_at)
		FROM cells c
		INNER JOIN (SELECT cell_id, MAX(version) AS max_version FROM cells GROUP BY cell_id) latest
			ON c.cell_id = latest.cell_id AND c.version = latest.max_version
		WHERE c.deleted_at IS NULL`).
		Scan(&st.Cells, &st.Same, &st.Different, &mean, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("cell stats: %w", err)
	}
	st.MeanRatio = mean.Float64
	if oldest.Valid {
		st.OldestCell = &oldest.Int64
	}
	if newest.Valid {
		st.NewestCell = &newest.Int64
	}

	counts := []struct {
		dst   *int64
		query string
	}{
		{&st.Deleted, `SELECT COUNT(DISTINCT cell_id) FROM cells WHERE deleted_at IS NOT NULL`},
		{&st.TotalVersions, `SELECT COUNT(*) FROM cells`},
		{&st.Authors, `SELECT COUNT(DISTINCT author) FROM cells`},
		{&st.Comments, `SELECT COUNT(*) FROM comments`},
		{&st.Affirmed, `SELECT COUNT(*) FROM approvals WHERE status = 'affirmed'`},
		{&st.Caution, `SELECT COUNT(*) FROM approvals WHERE status = 'caution'`},
		{&st.Rejected, `SELECT COUNT(*) FROM approvals WHERE status = 'rejected'`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}
	return &st, nil
}
