// annotations.go stores per-cell comments and approval markers.
//
// Both are keyed by cell id, not by version: re-rendering or rewriting a
// cell's text leaves them untouched. Approval markers are only ever set by
// an explicit call; nothing here derives them from cell content.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jpl-au/cellrev/internal/validate"
)

// Comment returns the comment on a cell. A cell without a comment yields an
// empty Comment, not an error.
func (s *SQLiteStore) Comment(ctx context.Context, id string) (*Comment, error) {
	c := &Comment{CellID: id}
	err := s.db.QueryRowContext(ctx, `SELECT text, author, updated_at FROM comments WHERE cell_id = ?`, id).
		Scan(&c.Text, &c.Author, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read comment for %s: %w", id, err)
	}
	return c, nil
}

// SetComment replaces the comment on a cell. Blank text removes it.
func (s *SQLiteStore) SetComment(ctx context.Context, id, text, author string) error {
	if strings.TrimSpace(text) == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE cell_id = ?`, id)
		if err != nil {
			return fmt.Errorf("clear comment for %s: %w", id, err)
		}
		return nil
	}
	if err := validate.Content(text, 0); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (cell_id, text, author, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(cell_id) DO UPDATE SET text = excluded.text, author = excluded.author,
			updated_at = excluded.updated_at`,
		id, text, author, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save comment for %s: %w", id, err)
	}
	return nil
}

// Approvals returns both column markers of a cell.
func (s *SQLiteStore) Approvals(ctx context.Context, id string) (Approvals, error) {
	a := NoApprovals
	rows, err := s.db.QueryContext(ctx, `SELECT col, status FROM approvals WHERE cell_id = ?`, id)
	if err != nil {
		return a, fmt.Errorf("read approvals for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var col, status string
		if err := rows.Scan(&col, &status); err != nil {
			return a, fmt.Errorf("scan approval: %w", err)
		}
		switch col {
		case validate.ColumnPrimary:
			a.Primary = status
		case validate.ColumnSecondary:
			a.Secondary = status
		}
	}
	return a, rows.Err()
}

// SetApproval sets or clears one column's marker.
func (s *SQLiteStore) SetApproval(ctx context.Context, id, column, status, author string) error {
	col, err := validate.Column(column)
	if err != nil {
		return err
	}
	st, err := validate.Approval(status)
	if err != nil {
		return err
	}

	if st == validate.ApprovalNone {
		_, err = s.db.ExecContext(ctx, `DELETE FROM approvals WHERE cell_id = ? AND col = ?`, id, col)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO approvals (cell_id, col, status, author, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(cell_id, col) DO UPDATE SET status = excluded.status, author = excluded.author,
				updated_at = excluded.updated_at`,
			id, col, st, author, time.Now().Unix())
	}
	if err != nil {
		return fmt.Errorf("set %s approval for %s: %w", col, id, err)
	}
	return nil
}
