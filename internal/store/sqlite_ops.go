// sqlite_ops.go provides SQLite connection management and low-level helpers.
//
// WAL mode lets the web server and MCP server read while the CLI writes.
// The 5 second busy timeout covers concurrent writers, such as bulk
// regenerate, without waiting forever on a stuck connection.

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// cellColumns is the select list matching scanCell.
const cellColumns = `id, key, cell_id, row_num, primary_text, secondary_text, auxiliary_text,
	ratio, status, version, author, message, created_at, deleted_at`

// pragmas are applied by the driver to every pooled connection. Write
// transactions begin IMMEDIATE so a read-then-write never has to upgrade
// its lock, which under WAL fails at once with SQLITE_BUSY_SNAPSHOT
// instead of waiting out the busy timeout.
const pragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" +
	// NORMAL is corruption-safe under WAL; only the last transaction
	// can be lost on OS crash.
	"&_pragma=synchronous(NORMAL)&_txlock=immediate"

// dsn appends the connection pragmas to path.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return path + "?" + pragmas
}

// Open opens the SQLite database at path. The caller must Close it.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Init brings the schema up to date.
func (s *SQLiteStore) Init() error {
	return migrate(s.db)
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for extensions that need custom
// tables. Extensions should not modify core tables directly.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCell(sc scanner) (Cell, error) {
	var c Cell
	var msg sql.NullString
	var del sql.NullInt64

	err := sc.Scan(&c.ID, &c.Key, &c.CellID, &c.Row, &c.Primary, &c.Secondary, &c.Auxiliary,
		&c.Ratio, &c.Status, &c.Version, &c.Author, &msg, &c.CreatedAt, &del)
	if err != nil {
		return c, err
	}
	c.Message = msg.String
	if del.Valid {
		c.DeletedAt = &del.Int64
	}
	return c, nil
}

// scanOne converts sql.ErrNoRows to ErrNotFound.
func scanOne(row *sql.Row) (*Cell, error) {
	c, err := scanCell(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan cell: %w", err)
	}
	return &c, nil
}

func scanAll(rows *sql.Rows) ([]Cell, error) {
	var cells []Cell
	for rows.Next() {
		c, err := scanCell(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// Tx executes fn within a transaction, committing if fn returns nil and
// rolling back otherwise (including on panic).
//
//	err := s.Tx(ctx, func(tx *sql.Tx) error {
//	    _, err := tx.ExecContext(ctx, `UPDATE ...`)
//	    return err
//	})
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// genID creates a unique 8-character identifier for a cell version.
func genID() (string, error) {
	b := make([]byte, 5) // 5 bytes = 8 base32 chars
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(base32.StdEncoding.EncodeToString(b)), nil
}
