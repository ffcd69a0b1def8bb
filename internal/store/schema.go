// schema.go applies the numbered SQL files in sql/. PRAGMA user_version
// holds the number of the last file applied, so each file runs once per
// database and a store created by an older build picks up only the files
// added since.

package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var schemas embed.FS

var (
	// ErrNotFound indicates the requested cell or version does not exist.
	ErrNotFound = errors.New("cell not found")
	// ErrAlreadyExists is returned when importing over an existing cell
	// without PutOptions.Replace.
	ErrAlreadyExists = errors.New("cell already exists")
	// ErrInvalidOption is returned for an unrecognised listing option.
	ErrInvalidOption = errors.New("invalid list option")
	// ErrSchemaTooNew is returned when the database was written by a newer
	// build than this one.
	ErrSchemaTooNew = errors.New("database schema is newer than this cellrev")
)

type migration struct {
	version int
	name    string
}

// migrations lists sql/NNN_name.sql in version order.
func migrations() ([]migration, error) {
	names, err := fs.Glob(schemas, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	ms := make([]migration, 0, len(names))
	for _, name := range names {
		base := strings.TrimPrefix(name, "sql/")
		num, _, ok := strings.Cut(base, "_")
		v, err := strconv.Atoi(num)
		if !ok || err != nil || v < 1 {
			return nil, fmt.Errorf("schema file %s: name must start with a version number", base)
		}
		ms = append(ms, migration{version: v, name: name})
	}
	slices.SortFunc(ms, func(a, b migration) int { return a.version - b.version })
	for i := 1; i < len(ms); i++ {
		if ms[i].version == ms[i-1].version {
			return nil, fmt.Errorf("schema version %d used twice", ms[i].version)
		}
	}
	return ms, nil
}

// migrate applies every file above the database's user_version, each in
// its own transaction together with the version bump.
func migrate(db *sql.DB) error {
	ms, err := migrations()
	if err != nil {
		return err
	}

	var current int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if n := len(ms); n > 0 && current > ms[n-1].version {
		return fmt.Errorf("%w (database %d, supported %d)", ErrSchemaTooNew, current, ms[n-1].version)
	}

	for _, m := range ms {
		if m.version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
	}
	return nil
}

func apply(db *sql.DB, m migration) error {
	data, err := schemas.ReadFile(m.name)
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(data)); err != nil {
		return fmt.Errorf("exec %s: %w", m.name, err)
	}
	// PRAGMA takes no bind parameters.
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, m.version)); err != nil {
		return fmt.Errorf("set schema version %d: %w", m.version, err)
	}
	return tx.Commit()
}
