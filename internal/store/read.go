// read.go implements cell retrieval.
//
// When a cell has several versions, reads return the highest version unless
// a specific one is requested. includeDeleted controls whether soft-deleted
// cells are visible.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jpl-au/cellrev/internal/validate"
)

// Latest returns the highest version of a cell.
func (s *SQLiteStore) Latest(ctx context.Context, id string, includeDeleted bool) (*Cell, error) {
	q := `SELECT ` + cellColumns + ` FROM cells WHERE cell_id = ?`
	if !includeDeleted {
		q += ` AND deleted_at IS NULL`
	}
	q += ` ORDER BY version DESC LIMIT 1`
	return scanOne(s.db.QueryRowContext(ctx, q, id))
}

// Version returns a specific version regardless of deletion status.
func (s *SQLiteStore) Version(ctx context.Context, id string, version int) (*Cell, error) {
	q := `SELECT ` + cellColumns + ` FROM cells WHERE cell_id = ? AND version = ?`
	return scanOne(s.db.QueryRowContext(ctx, q, id, version))
}

// ByKey returns the version with the given key.
func (s *SQLiteStore) ByKey(ctx context.Context, key string) (*Cell, error) {
	q := `SELECT ` + cellColumns + ` FROM cells WHERE key = ?`
	return scanOne(s.db.QueryRowContext(ctx, q, key))
}

// List returns the latest version of every cell matching opts.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Cell, error) {
	var b strings.Builder
	var args []any

	b.WriteString(`SELECT ` + aliased("c") + `
		FROM cells c
		INNER JOIN (SELECT cell_id, MAX(version) AS max_version FROM cells GROUP BY cell_id) latest
			ON c.cell_id = latest.cell_id AND c.version = latest.max_version`)

	if opts.Approval != "" {
		col := opts.ApprovalColumn
		if col == "" {
			col = validate.ColumnSecondary
		}
		b.WriteString(` LEFT JOIN approvals a ON a.cell_id = c.cell_id AND a.col = ?`)
		args = append(args, col)
	}

	var where []string
	switch {
	case opts.DeletedOnly:
		where = append(where, `c.deleted_at IS NOT NULL`)
	case !opts.IncludeDeleted:
		where = append(where, `c.deleted_at IS NULL`)
	}
	if opts.Prefix != "" {
		where = append(where, `c.cell_id LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(opts.Prefix)+"%")
	}
	if opts.Query != "" {
		where = append(where, `(c.primary_text LIKE ? ESCAPE '\' OR c.secondary_text LIKE ? ESCAPE '\')`)
		q := "%" + escapeLike(opts.Query) + "%"
		args = append(args, q, q)
	}
	if opts.MinRatio != nil {
		where = append(where, `c.ratio >= ?`)
		args = append(args, *opts.MinRatio)
	}
	if opts.MaxRatio != nil {
		where = append(where, `c.ratio <= ?`)
		args = append(args, *opts.MaxRatio)
	}
	if opts.Below != nil {
		where = append(where, `c.ratio < ?`)
		args = append(args, *opts.Below)
	}
	if opts.Above != nil {
		where = append(where, `c.ratio > ?`)
		args = append(args, *opts.Above)
	}
	if opts.Status != "" {
		where = append(where, `c.status = ?`)
		args = append(args, opts.Status)
	}
	if opts.Approval != "" {
		if opts.Approval == validate.ApprovalNone {
			where = append(where, `a.status IS NULL`)
		} else {
			where = append(where, `a.status = ?`)
			args = append(args, opts.Approval)
		}
	}
	if len(where) > 0 {
		b.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}

	order, err := orderBy(opts.Sort)
	if err != nil {
		return nil, err
	}
	b.WriteString(` ORDER BY ` + order)

	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		b.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list cells: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func orderBy(sort string) (string, error) {
	switch sort {
	case "", SortRow:
		return `c.row_num, c.cell_id`, nil
	case SortID:
		return `c.cell_id`, nil
	case SortRatioAsc:
		return `c.ratio ASC, c.row_num, c.cell_id`, nil
	case SortRatioDesc:
		return `c.ratio DESC, c.row_num, c.cell_id`, nil
	}
	return "", fmt.Errorf("%w: sort %q (expected row, id, ratio or -ratio)", ErrInvalidOption, sort)
}

// IDs returns active cell ids matching prefix in row order.
func (s *SQLiteStore) IDs(ctx context.Context, prefix string) ([]string, error) {
	q := `SELECT cell_id FROM cells WHERE deleted_at IS NULL`
	var args []any
	if prefix != "" {
		q += ` AND cell_id LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(prefix)+"%")
	}
	q += ` GROUP BY cell_id ORDER BY MIN(row_num), cell_id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// History returns versions newest first.
func (s *SQLiteStore) History(ctx context.Context, id string, limit int, includeDeleted bool) ([]Cell, error) {
	q := `SELECT ` + cellColumns + ` FROM cells WHERE cell_id = ?`
	args := []any{id}
	if !includeDeleted {
		q += ` AND deleted_at IS NULL`
	}
	q += ` ORDER BY version DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list history for %s: %w", id, err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// Exists reports whether an active cell exists.
func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM cells WHERE cell_id = ? AND deleted_at IS NULL LIMIT 1`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", id, err)
	}
	return true, nil
}

// Count returns the number of active cells matching prefix.
func (s *SQLiteStore) Count(ctx context.Context, prefix string) (int64, error) {
	q := `SELECT COUNT(DISTINCT cell_id) FROM cells WHERE deleted_at IS NULL`
	var args []any
	if prefix != "" {
		q += ` AND cell_id LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(prefix)+"%")
	}
	var n int64
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// aliased prefixes every column of cellColumns with alias.
func aliased(alias string) string {
	cols := strings.Split(cellColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
