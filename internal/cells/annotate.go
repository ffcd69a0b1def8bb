// annotate.go handles comments and approval markers. Both are set only by
// an explicit reviewer action and survive every text write.

package cells

import (
	"context"
	"fmt"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/store"
	"github.com/jpl-au/cellrev/internal/validate"
)

// exists fails with store.ErrNotFound for unknown or deleted cells, so
// annotations cannot be attached to cells that are not there.
func (s *Service) exists(ctx context.Context, id string) error {
	ok, err := s.store.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%q: %w", id, store.ErrNotFound)
	}
	return nil
}

// Approve sets one column's marker. Status accepts the colour aliases.
func (s *Service) Approve(ctx context.Context, id, column, status, author string) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	col, err := validate.Column(column)
	if err != nil {
		return err
	}
	st, err := validate.Approval(status)
	if err != nil {
		return err
	}
	if err := s.store.SetApproval(ctx, id, col, st, authorOr(author)); err != nil {
		return err
	}
	s.fire(extension.ApprovalEvent{ID: id, Column: col, Status: st, Author: author})
	return nil
}

// ResetApproval clears both markers.
func (s *Service) ResetApproval(ctx context.Context, id, author string) error {
	for _, col := range []string{validate.ColumnPrimary, validate.ColumnSecondary} {
		if err := s.Approve(ctx, id, col, validate.ApprovalNone, author); err != nil {
			return err
		}
	}
	return nil
}

// Approvals returns both column markers.
func (s *Service) Approvals(ctx context.Context, id string) (store.Approvals, error) {
	if err := s.exists(ctx, id); err != nil {
		return store.Approvals{}, err
	}
	return s.store.Approvals(ctx, id)
}

// Comment returns the comment text; "" when there is none.
func (s *Service) Comment(ctx context.Context, id string) (string, error) {
	if err := s.exists(ctx, id); err != nil {
		return "", err
	}
	c, err := s.store.Comment(ctx, id)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}

// SaveComment replaces the comment. Blank text removes it.
func (s *Service) SaveComment(ctx context.Context, id, text, author string) error {
	if err := s.exists(ctx, id); err != nil {
		return err
	}
	text = validate.NormaliseLineEndings(text)
	if err := validate.Content(text, s.maxContent); err != nil {
		return err
	}
	if err := s.store.SetComment(ctx, id, text, authorOr(author)); err != nil {
		return err
	}
	s.fire(extension.CommentEvent{ID: id, Text: text, Author: author})
	return nil
}
