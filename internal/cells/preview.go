package cells

import (
	"context"
	"fmt"

	"github.com/jpl-au/cellrev/internal/render"
	"github.com/jpl-au/cellrev/internal/service"
)

// Preview diffs and renders primary against secondary. Nothing is stored.
func (s *Service) Preview(ctx context.Context, primary, secondary string) (render.Cell, error) {
	if err := ctx.Err(); err != nil {
		return render.Cell{}, err
	}
	sc, err := s.engine.Compute(primary, secondary)
	if err != nil {
		return render.Cell{}, err
	}
	return render.Render(sc), nil
}

// Render returns the latest version of a cell with its diff and
// annotations.
func (s *Service) Render(ctx context.Context, id string) (*service.Rendered, error) {
	c, err := s.store.Latest(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", id, err)
	}
	sc, err := s.engine.Compute(c.Primary, c.Secondary)
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", id, err)
	}
	a, err := s.store.Approvals(ctx, c.CellID)
	if err != nil {
		return nil, err
	}
	cm, err := s.store.Comment(ctx, c.CellID)
	if err != nil {
		return nil, err
	}
	return &service.Rendered{
		Cell:      c,
		Diff:      render.Render(sc),
		Approvals: a,
		Comment:   cm.Text,
	}, nil
}
