// interfaces.go defines the storage abstraction for cell persistence.
//
// Interfaces are granular (Reader, Writer, Annotator, Maintainer) so
// consumers depend only on what they use. Deletes are soft: rows are marked
// and remain recoverable until Vacuum.

package store

import (
	"context"
	"database/sql"
	"time"
)

// Reader defines read-only cell operations.
type Reader interface {
	// Latest returns the current version of a cell.
	Latest(ctx context.Context, id string, includeDeleted bool) (*Cell, error)

	// Version returns a specific historical version.
	Version(ctx context.Context, id string, version int) (*Cell, error)

	// ByKey returns the version with the given 8-char key.
	ByKey(ctx context.Context, key string) (*Cell, error)

	// List returns the latest version of each cell matching opts.
	List(ctx context.Context, opts ListOptions) ([]Cell, error)

	// IDs returns the ids of active cells matching a prefix, in row order.
	IDs(ctx context.Context, prefix string) ([]string, error)

	// History returns versions newest first. limit <= 0 means all.
	History(ctx context.Context, id string, limit int, includeDeleted bool) ([]Cell, error)

	// Exists reports whether an active cell exists.
	Exists(ctx context.Context, id string) (bool, error)

	// Count returns the number of active cells matching a prefix.
	Count(ctx context.Context, prefix string) (int64, error)

	// Stats returns aggregate statistics.
	Stats(ctx context.Context) (*Stats, error)
}

// Writer defines operations that modify cells.
type Writer interface {
	// Put imports a whole cell as a new version.
	Put(ctx context.Context, in CellInput, opts PutOptions) (*Cell, error)

	// WriteSecondary stores new secondary text as a new version, carrying
	// the other texts forward from the latest version.
	WriteSecondary(ctx context.Context, id, text string, opts WriteOptions) (*Cell, error)

	// SetRatio updates the stored ratio and status of the latest version in
	// place without creating a version.
	SetRatio(ctx context.Context, id string, ratio float64, status string) error

	// Delete soft-deletes all versions of a cell.
	Delete(ctx context.Context, id string) error

	// Restore recovers a soft-deleted cell.
	Restore(ctx context.Context, id string) error
}

// Annotator stores comments and approval markers. Neither is versioned and
// neither is touched by writes to cell text.
type Annotator interface {
	Comment(ctx context.Context, id string) (*Comment, error)
	SetComment(ctx context.Context, id, text, author string) error

	Approvals(ctx context.Context, id string) (Approvals, error)
	// SetApproval sets one column's marker; status "none" clears it.
	SetApproval(ctx context.Context, id, column, status, author string) error
}

// Maintainer defines database maintenance and lifecycle operations.
type Maintainer interface {
	Close() error

	// DB exposes the underlying connection for extensions needing custom tables.
	DB() *sql.DB

	// Checkpoint flushes WAL to the main database file.
	Checkpoint(ctx context.Context) error

	// Vacuum permanently removes soft-deleted cells.
	Vacuum(ctx context.Context, olderThan *time.Duration, prefix string) (int64, error)
}

// Store defines the persistence interface for cells.
type Store interface {
	Reader
	Writer
	Annotator
	Maintainer
}
