// Package service defines the shared interface for cell operations.
// Commands, the MCP server, the web surface and the text generator depend
// on this interface rather than the SQLite-backed implementation in
// internal/cells.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/jpl-au/cellrev/internal/render"
	"github.com/jpl-au/cellrev/internal/store"
)

// SaveResult is what a save hands back to the view: the committed texts
// rendered as a diff, plus the stored version.
type SaveResult struct {
	Cell     *store.Cell `json:"-"`
	Rendered render.Cell `json:"rendered"`
	Ratio    float64     `json:"ratio"`
	Version  int         `json:"version"`
}

// Status returns same or different.
func (r *SaveResult) Status() string { return r.Rendered.Status }

// Rendered is a stored cell together with its diff and annotations, the
// shape every surface shows for a committed cell.
type Rendered struct {
	Cell      *store.Cell
	Diff      render.Cell
	Approvals store.Approvals
	Comment   string
}

// ImportOptions configures Import.
type ImportOptions struct {
	Author  string
	Message string
	Replace bool // write a new version for cells that already exist
}

// ImportResult counts the outcome of an Import. Failed maps cell id to the
// error text for cells that were not stored.
type ImportResult struct {
	Created  int               `json:"created"`
	Replaced int               `json:"replaced"`
	Skipped  int               `json:"skipped"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// Service defines all cell operations.
//
// Obtain one with cells.New and always Close it:
//
//	svc, err := cells.New("")
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//	r, err := svc.Preview(ctx, "The cat sat", "The dog sat")
type Service interface {
	// Close checkpoints and releases the database.
	Close() error

	// Preview diffs and renders a pair of texts without touching storage.
	// Text that is not valid UTF-8 yields diff.ErrInvalidInput.
	Preview(ctx context.Context, primary, secondary string) (render.Cell, error)

	// Save normalises submitted text, stores it as the cell's new secondary
	// text and returns the committed render. Approval markers are kept.
	Save(ctx context.Context, id, text, author, message string) (*SaveResult, error)

	// Get returns the latest version of a cell.
	Get(ctx context.Context, id string, includeDeleted bool) (*store.Cell, error)

	// Version returns a specific version of a cell.
	Version(ctx context.Context, id string, version int) (*store.Cell, error)

	// Render returns a stored cell with its diff, approvals and comment.
	Render(ctx context.Context, id string) (*Rendered, error)

	// List returns the latest version of every cell matching opts.
	List(ctx context.Context, opts store.ListOptions) ([]store.Cell, error)

	// IDs returns active cell ids with the given prefix in row order.
	IDs(ctx context.Context, prefix string) ([]string, error)

	// Count returns the number of active cells with the given prefix.
	Count(ctx context.Context, prefix string) (int64, error)

	// History returns versions newest first. limit 0 means all.
	History(ctx context.Context, id string, limit int, includeDeleted bool) ([]store.Cell, error)

	// Revert writes the secondary text of an earlier version as a new version.
	Revert(ctx context.Context, id string, version int, author string) (*SaveResult, error)

	// RecalculateRatios recomputes ratio and status for every active cell
	// with the given prefix and returns how many changed.
	RecalculateRatios(ctx context.Context, prefix string) (int, error)

	// Approve sets one column's approval marker.
	Approve(ctx context.Context, id, column, status, author string) error

	// ResetApproval clears both approval markers of a cell.
	ResetApproval(ctx context.Context, id, author string) error

	// Approvals returns both column markers.
	Approvals(ctx context.Context, id string) (store.Approvals, error)

	// Comment returns a cell's comment; a cell without one yields "".
	Comment(ctx context.Context, id string) (string, error)

	// SaveComment replaces a cell's comment. Blank text removes it.
	SaveComment(ctx context.Context, id, text, author string) error

	// Import stores whole cells, computing ratio and status for each.
	Import(ctx context.Context, cells []store.CellInput, opts ImportOptions) (*ImportResult, error)

	// Delete soft-deletes a cell (can be restored).
	Delete(ctx context.Context, id string) error

	// Restore un-deletes a soft-deleted cell.
	Restore(ctx context.Context, id string) error

	// Vacuum permanently removes soft-deleted cells. See store.Vacuum.
	Vacuum(ctx context.Context, olderThan *time.Duration, prefix string) (int64, error)

	// Stats returns aggregate database statistics.
	Stats(ctx context.Context) (*store.Stats, error)

	// Checkpoint flushes the WAL to the main database file.
	Checkpoint(ctx context.Context) error

	// DB returns the underlying connection for extensions with their own
	// tables. Do not close it; use Close.
	DB() *sql.DB

	// Tx runs fn within a database transaction.
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// Dir returns the .cellrev directory holding the database.
	Dir() string
}
