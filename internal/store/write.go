// write.go implements cell creation and modification.
//
// Writes never update text in place. Each one inserts a new version whose
// number is MAX(version)+1, computed inside the transaction so concurrent
// writers to one cell cannot collide.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jpl-au/cellrev/internal/validate"
)

// ErrContentTooLarge is returned when a cell text exceeds the configured limit.
var ErrContentTooLarge = validate.ErrContentTooLarge

// Put imports a whole cell. If the cell already exists, Put fails with
// ErrAlreadyExists unless opts.Replace is set, in which case it writes a new
// version.
func (s *SQLiteStore) Put(ctx context.Context, in CellInput, opts PutOptions) (*Cell, error) {
	id, err := validate.CellID(in.ID, opts.MaxID)
	if err != nil {
		return nil, err
	}
	for _, text := range []string{in.Primary, in.Secondary, in.Auxiliary} {
		if err := validate.Content(text, opts.MaxContent); err != nil {
			return nil, err
		}
	}

	c := &Cell{
		CellID:    id,
		Row:       in.Row,
		Primary:   in.Primary,
		Secondary: in.Secondary,
		Auxiliary: in.Auxiliary,
		Ratio:     opts.Ratio,
		Status:    statusOr(opts.Status),
		Author:    opts.Author,
		Message:   opts.Message,
	}

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		maxVer, err := maxVersion(ctx, tx, id)
		if err != nil {
			return err
		}
		if maxVer > 0 && !opts.Replace {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
		}
		c.Version = maxVer + 1
		return insert(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// WriteSecondary stores text as the new secondary text of an existing cell.
func (s *SQLiteStore) WriteSecondary(ctx context.Context, id, text string, opts WriteOptions) (*Cell, error) {
	if err := validate.Content(text, opts.MaxContent); err != nil {
		return nil, err
	}

	var c *Cell
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+cellColumns+` FROM cells
			WHERE cell_id = ? AND deleted_at IS NULL ORDER BY version DESC LIMIT 1`, id)
		prev, err := scanOne(row)
		if err != nil {
			return err
		}

		next := *prev
		next.Secondary = text
		next.Ratio = opts.Ratio
		next.Status = statusOr(opts.Status)
		next.Version = prev.Version + 1
		next.Author = opts.Author
		next.Message = opts.Message
		if err := insert(ctx, tx, &next); err != nil {
			return err
		}
		c = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetRatio updates ratio and status on the latest version in place. Ratios
// are derived data, so recalculating them does not create history.
func (s *SQLiteStore) SetRatio(ctx context.Context, id string, ratio float64, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cells SET ratio = ?, status = ?
		WHERE cell_id = ? AND deleted_at IS NULL
		  AND version = (SELECT MAX(version) FROM cells WHERE cell_id = ?)`,
		ratio, statusOr(status), id, id)
	if err != nil {
		return fmt.Errorf("set ratio for %s: %w", id, err)
	}
	return affected(res, id)
}

// Delete soft-deletes every version of a cell.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cells SET deleted_at = ? WHERE cell_id = ? AND deleted_at IS NULL`,
		time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return affected(res, id)
}

// Restore clears the deletion mark on every version of a cell.
func (s *SQLiteStore) Restore(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cells SET deleted_at = NULL WHERE cell_id = ? AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("restore %s: %w", id, err)
	}
	return affected(res, id)
}

func maxVersion(ctx context.Context, tx *sql.Tx, id string) (int, error) {
	var v int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM cells WHERE cell_id = ?`, id).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("get max version: %w", err)
	}
	return v, nil
}

// insert writes c as a new row, filling in Key and CreatedAt.
func insert(ctx context.Context, tx *sql.Tx, c *Cell) error {
	key, err := genID()
	if err != nil {
		return err
	}
	c.Key = key
	c.CreatedAt = time.Now().Unix()
	c.DeletedAt = nil

	_, err = tx.ExecContext(ctx, `INSERT INTO cells (key, cell_id, row_num, primary_text, secondary_text,
			auxiliary_text, ratio, status, version, author, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Key, c.CellID, c.Row, c.Primary, c.Secondary, c.Auxiliary,
		c.Ratio, c.Status, c.Version, c.Author, c.Message, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert cell: %w", err)
	}
	return nil
}

func affected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func statusOr(s string) string {
	if s == "" {
		return "different"
	}
	return s
}
