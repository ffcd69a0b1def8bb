// Package vacuum permanently removes soft-deleted cells. Deleted cells stay
// restorable until a vacuum runs.
package vacuum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jpl-au/cellrev/internal/progress"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
)

// Options scopes a vacuum.
type Options struct {
	OlderThan *time.Duration // keep cells deleted more recently than this
	Prefix    string         // cell id prefix
	DryRun    bool
}

// Result reports what was, or in a dry run would be, removed.
type Result struct {
	Deleted int      `json:"deleted"`
	IDs     []string `json:"ids,omitempty"` // dry run only
}

// Run removes soft-deleted cells. It cannot be undone; use DryRun first.
func Run(ctx context.Context, w io.Writer, svc service.Service, opts Options) (Result, error) {
	if opts.DryRun {
		return preview(ctx, w, svc, opts)
	}

	spin := progress.NewSpinner("Vacuuming")
	spin.Start()
	n, err := svc.Vacuum(ctx, opts.OlderThan, opts.Prefix)
	spin.Stop()
	if err != nil {
		return Result{}, err
	}
	// A busy checkpoint only leaves the WAL for the next one.
	if n > 0 {
		if err := svc.Checkpoint(ctx); err != nil && !errors.Is(err, store.ErrCheckpointBusy) {
			return Result{Deleted: int(n)}, err
		}
	}

	if n == 0 {
		fmt.Fprintln(w, "No cells to vacuum")
	} else {
		fmt.Fprintf(w, "Vacuumed %d row(s)\n", n)
	}
	return Result{Deleted: int(n)}, nil
}

func preview(ctx context.Context, w io.Writer, svc service.Service, opts Options) (Result, error) {
	var res Result

	deleted, err := svc.List(ctx, store.ListOptions{Prefix: opts.Prefix, DeletedOnly: true})
	if err != nil {
		return res, err
	}

	var cutoff int64
	if opts.OlderThan != nil {
		cutoff = time.Now().Add(-*opts.OlderThan).Unix()
	}
	for _, c := range deleted {
		if c.DeletedAt == nil {
			continue
		}
		if opts.OlderThan != nil && *c.DeletedAt >= cutoff {
			continue
		}
		fmt.Fprintf(w, "Would delete: %s (deleted %s)\n",
			c.CellID, time.Unix(*c.DeletedAt, 0).Format("2006-01-02 15:04"))
		res.IDs = append(res.IDs, c.CellID)
		res.Deleted++
	}

	if res.Deleted == 0 {
		fmt.Fprintln(w, "No cells to vacuum")
	} else {
		fmt.Fprintf(w, "\nWould delete %d cell(s)\n", res.Deleted)
	}
	return res, nil
}
