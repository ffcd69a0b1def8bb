// write.go implements the operations that create cell versions.
//
// Ratio and status are always computed from the texts being stored, never
// taken from the caller, so the stored values match what a render of the
// same version would show.

package cells

import (
	"context"
	"errors"
	"fmt"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/render"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
	"github.com/jpl-au/cellrev/internal/validate"
)

// Save normalises editor text and stores it as the cell's new secondary
// text. The result carries the committed render.
func (s *Service) Save(ctx context.Context, id, text, author, message string) (*service.SaveResult, error) {
	return s.commit(ctx, id, validate.SubmittedText(text), author, message)
}

// Revert stores the secondary text of an earlier version as a new version.
func (s *Service) Revert(ctx context.Context, id string, version int, author string) (*service.SaveResult, error) {
	old, err := s.store.Version(ctx, id, version)
	if err != nil {
		return nil, fmt.Errorf("revert %q to version %d: %w", id, version, err)
	}
	return s.commit(ctx, id, old.Secondary, author, fmt.Sprintf("Revert to version %d", version))
}

func (s *Service) commit(ctx context.Context, id, text, author, message string) (*service.SaveResult, error) {
	cur, err := s.store.Latest(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("save %q: %w", id, err)
	}
	sc, err := s.engine.Compute(cur.Primary, text)
	if err != nil {
		return nil, fmt.Errorf("save %q: %w", id, err)
	}

	c, err := s.store.WriteSecondary(ctx, cur.CellID, text, store.WriteOptions{
		Author:     authorOr(author),
		Message:    message,
		Ratio:      ratio(sc),
		Status:     sc.Status(),
		MaxContent: s.maxContent,
	})
	if err != nil {
		return nil, fmt.Errorf("save %q: %w", id, err)
	}

	s.fire(extension.CellSaveEvent{
		ID:      c.CellID,
		Version: c.Version,
		Author:  c.Author,
		Status:  c.Status,
		Ratio:   c.Ratio,
		Text:    c.Secondary,
	})
	return &service.SaveResult{
		Cell:     c,
		Rendered: render.Render(sc),
		Ratio:    c.Ratio,
		Version:  c.Version,
	}, nil
}

// RecalculateRatios recomputes ratio and status for every active cell with
// the given prefix. Only cells whose stored values change are updated.
func (s *Service) RecalculateRatios(ctx context.Context, prefix string) (int, error) {
	cells, err := s.store.List(ctx, store.ListOptions{Prefix: prefix})
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, c := range cells {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		sc, err := s.engine.Compute(c.Primary, c.Secondary)
		if err != nil {
			return updated, fmt.Errorf("ratio %q: %w", c.CellID, err)
		}
		r, st := ratio(sc), sc.Status()
		if r == c.Ratio && st == c.Status {
			continue
		}
		if err := s.store.SetRatio(ctx, c.CellID, r, st); err != nil {
			return updated, err
		}
		updated++
	}
	s.fire(extension.RatiosEvent{Prefix: prefix, Updated: updated})
	return updated, nil
}

// Import stores whole cells. Line endings are normalised, ratio and status
// computed, and a missing row number defaults to the cell's position in the
// batch. Cells that already exist are skipped unless opts.Replace is set.
// One bad cell does not stop the rest.
func (s *Service) Import(ctx context.Context, cells []store.CellInput, opts service.ImportOptions) (*service.ImportResult, error) {
	res := &service.ImportResult{}
	fail := func(id string, err error) {
		if res.Failed == nil {
			res.Failed = make(map[string]string)
		}
		res.Failed[id] = err.Error()
	}

	for i, in := range cells {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		in.Primary = validate.NormaliseLineEndings(in.Primary)
		in.Secondary = validate.NormaliseLineEndings(in.Secondary)
		in.Auxiliary = validate.NormaliseLineEndings(in.Auxiliary)
		if in.Row == 0 {
			in.Row = i + 1
		}

		sc, err := s.engine.Compute(in.Primary, in.Secondary)
		if err != nil {
			fail(in.ID, err)
			continue
		}
		c, err := s.store.Put(ctx, in, store.PutOptions{
			Author:     authorOr(opts.Author),
			Message:    opts.Message,
			Ratio:      ratio(sc),
			Status:     sc.Status(),
			Replace:    opts.Replace,
			MaxID:      s.maxID,
			MaxContent: s.maxContent,
		})
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			res.Skipped++
			continue
		case err != nil:
			fail(in.ID, err)
			continue
		case c.Version > 1:
			res.Replaced++
		default:
			res.Created++
		}
		s.fire(extension.CellImportEvent{ID: c.CellID, Version: c.Version, Replaced: c.Version > 1})
	}
	return res, nil
}

// Delete soft-deletes a cell.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	s.fire(extension.CellDeleteEvent{ID: id})
	return nil
}

// Restore un-deletes a soft-deleted cell.
func (s *Service) Restore(ctx context.Context, id string) error {
	if err := s.store.Restore(ctx, id); err != nil {
		return fmt.Errorf("restore %q: %w", id, err)
	}
	s.fire(extension.CellDeleteEvent{ID: id, Restored: true})
	return nil
}
