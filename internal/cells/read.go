package cells

import (
	"context"
	"fmt"
	"time"

	"github.com/jpl-au/cellrev/internal/diff"
	"github.com/jpl-au/cellrev/internal/store"
	"github.com/jpl-au/cellrev/internal/validate"
)

// Get returns the latest version of a cell.
func (s *Service) Get(ctx context.Context, id string, includeDeleted bool) (*store.Cell, error) {
	c, err := s.store.Latest(ctx, id, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", id, err)
	}
	return c, nil
}

// Version returns a specific version of a cell.
func (s *Service) Version(ctx context.Context, id string, version int) (*store.Cell, error) {
	c, err := s.store.Version(ctx, id, version)
	if err != nil {
		return nil, fmt.Errorf("get %q version %d: %w", id, version, err)
	}
	return c, nil
}

// List returns the latest version of every cell matching opts. Approval
// filters accept the colour aliases.
func (s *Service) List(ctx context.Context, opts store.ListOptions) ([]store.Cell, error) {
	if opts.Approval != "" {
		a, err := validate.Approval(opts.Approval)
		if err != nil {
			return nil, err
		}
		opts.Approval = a
		col := opts.ApprovalColumn
		if col == "" {
			col = validate.ColumnSecondary
		}
		if opts.ApprovalColumn, err = validate.Column(col); err != nil {
			return nil, err
		}
	}
	switch opts.Status {
	case "", diff.StatusSame, diff.StatusDifferent:
	default:
		return nil, fmt.Errorf("%w: status %q (expected same or different)", store.ErrInvalidOption, opts.Status)
	}
	return s.store.List(ctx, opts)
}

// IDs returns active cell ids with the given prefix in row order.
func (s *Service) IDs(ctx context.Context, prefix string) ([]string, error) {
	return s.store.IDs(ctx, prefix)
}

// Count returns the number of active cells with the given prefix.
func (s *Service) Count(ctx context.Context, prefix string) (int64, error) {
	return s.store.Count(ctx, prefix)
}

// History returns versions newest first.
func (s *Service) History(ctx context.Context, id string, limit int, includeDeleted bool) ([]store.Cell, error) {
	h, err := s.store.History(ctx, id, limit, includeDeleted)
	if err != nil {
		return nil, err
	}
	if len(h) == 0 {
		return nil, fmt.Errorf("history %q: %w", id, store.ErrNotFound)
	}
	return h, nil
}

// Stats returns aggregate database statistics.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Stats(ctx)
}

// Vacuum permanently removes soft-deleted cells.
func (s *Service) Vacuum(ctx context.Context, olderThan *time.Duration, prefix string) (int64, error) {
	return s.store.Vacuum(ctx, olderThan, prefix)
}
