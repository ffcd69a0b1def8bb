package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jpl-au/cellrev/internal/render"
)

// Hooks observe session outcomes, for metrics. Any may be nil.
type Hooks struct {
	Stale   func(cell string)
	Preview func(cell string, err error)
	Save    func(cell string, err error)
}

// Options configures sessions.
type Options struct {
	// Quiet is how long input must be stable before a preview is issued.
	Quiet time.Duration
	// Timeout bounds every collaborator call. Zero means no bound.
	Timeout time.Duration
	Hooks   Hooks
}

// Session is the edit state of one cell.
type Session struct {
	cell    string
	opts    Options
	preview Previewer
	saver   Saver
	regen   Regenerator
	view    View

	ctx      context.Context
	cancel   context.CancelFunc
	debounce *Debouncer
	scroll   *ScrollSync

	mu        sync.Mutex
	state     State
	mode      ViewMode
	primary   string
	secondary string      // committed secondary text
	committed render.Cell // committed render
	working   render.Cell // preview or raw fallback
	input     string
	seq       uint64
	busy      bool
	closed    bool
	stale     int
	corr      correlations
}

func newSession(cell string, base Baseline, view View, opts Options, p Previewer, s Saver, r Regenerator) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	committed := base.Rendered
	if committed.Status == "" {
		committed = render.Raw(base.Primary, base.Secondary)
	}
	sess := &Session{
		cell:      cell,
		opts:      opts,
		preview:   p,
		saver:     s,
		regen:     r,
		view:      view,
		ctx:       ctx,
		cancel:    cancel,
		debounce:  NewDebouncer(opts.Quiet),
		primary:   base.Primary,
		secondary: base.Secondary,
		committed: committed,
		corr:      make(correlations),
	}
	sess.scroll = NewScrollSync(view.Scroll)
	return sess
}

// Cell returns the cell id.
func (s *Session) Cell() string { return s.cell }

// State returns the current state. A closed session reports Cancelled.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Cancelled
	}
	return s.state
}

// Frame returns what the cell currently shows.
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame()
}

// Input returns the text being edited.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Leaks reports how many hover bindings are registered. After Close it is
// always zero.
func (s *Session) Leaks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corr.count()
}

// Stale reports how many responses were discarded as superseded.
func (s *Session) Stale() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

func (s *Session) frame() Frame {
	st := s.state
	if s.closed {
		st = Cancelled
	}
	return Compose(s.cell, st, s.mode, s.committed, s.working, s.input, s.seq)
}

// show registers bindings for the render now on screen, replacing the
// previous ones, and pushes the frame.
func (s *Session) show() {
	s.corr.releaseAll()
	f := s.frame()
	s.corr.bind(s.view, f.Pairs)
	s.view.Show(f)
}

func (s *Session) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := context.WithCancel(ctx)
	// Closing the session aborts its outstanding calls.
	unhook := context.AfterFunc(s.ctx, stop)
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		return ctx, func() { cancel(); unhook(); stop() }
	}
	return ctx, func() { unhook(); stop() }
}

// await runs fn and returns its result, or ctx's error as soon as ctx is
// done, so a collaborator that ignores its context cannot hang the session.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// edit moves an idle session into Editing with the committed secondary
// text as input. Only the Registry calls it, so it can cancel other cells
// first.
func (s *Session) edit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != Idle {
		return nil
	}
	s.state = Editing
	s.mode = ViewEdit
	s.input = s.secondary
	s.working = s.committed
	s.seq++
	s.show()
	return nil
}

// SetInput records new input and re-arms the preview debouncer. Any
// preview already in flight becomes stale.
func (s *Session) SetInput(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	switch s.state {
	case Saving:
		return ErrBusy
	case Idle:
		return ErrNotEditing
	case Previewing:
		s.state = Editing
	}
	s.input = text
	s.seq++
	s.debounce.Trigger(s.issuePreview)
	return nil
}

// issuePreview sends the current input for preview. It runs on the
// debouncer's goroutine.
func (s *Session) issuePreview() {
	s.mu.Lock()
	if s.closed || s.state != Editing {
		s.mu.Unlock()
		return
	}
	seq := s.seq
	primary, input := s.primary, s.input
	s.state = Previewing
	s.mu.Unlock()

	ctx, done := s.callCtx(s.ctx)
	cell, err := await(ctx, func(ctx context.Context) (render.Cell, error) {
		return s.preview.Preview(ctx, primary, input)
	})
	done()
	if err != nil {
		err = fmt.Errorf("%w: preview: %w", ErrTransport, err)
	}
	s.applyPreview(seq, primary, input, cell, err)
}

func (s *Session) applyPreview(seq uint64, primary, input string, cell render.Cell, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.seq || s.state != Previewing {
		s.stale++
		if s.opts.Hooks.Stale != nil {
			s.opts.Hooks.Stale(s.cell)
		}
		return
	}
	if s.opts.Hooks.Preview != nil {
		s.opts.Hooks.Preview(s.cell, err)
	}
	s.state = Editing
	if err != nil {
		s.mode = ViewRaw
		s.working = render.Raw(primary, input)
		s.view.Notify(err)
	} else {
		s.mode = ViewEdit
		s.working = cell
	}
	s.show()
}

// Save persists the input. On success the committed render replaces the
// preview and the session goes Idle. On failure it stays in Editing with
// the input intact and the error is shown; the caller may retry.
func (s *Session) Save(ctx context.Context) (render.Cell, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return render.Cell{}, ErrSessionClosed
	}
	if s.busy {
		s.mu.Unlock()
		return render.Cell{}, ErrBusy
	}
	if s.state != Editing && s.state != Previewing {
		s.mu.Unlock()
		return render.Cell{}, ErrNotEditing
	}
	s.debounce.Stop()
	s.seq++
	text := s.input
	s.state = Saving
	s.busy = true
	s.view.Show(s.frame())
	s.mu.Unlock()

	cctx, done := s.callCtx(ctx)
	base, err := await(cctx, func(ctx context.Context) (Baseline, error) {
		return s.saver.Save(ctx, s.cell, text)
	})
	done()
	if err != nil {
		err = fmt.Errorf("%w: save: %w", ErrTransport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if s.opts.Hooks.Save != nil {
		s.opts.Hooks.Save(s.cell, err)
	}
	if s.closed {
		s.stale++
		if err != nil {
			return render.Cell{}, err
		}
		return base.Rendered, ErrStaleResponse
	}
	if err != nil {
		s.state = Editing
		s.view.Notify(err)
		s.show()
		return render.Cell{}, err
	}
	cell := base.Rendered
	if cell.Status == "" {
		cell = render.Raw(s.primary, base.Secondary)
	}
	s.secondary = base.Secondary
	s.committed = cell
	s.working = render.Cell{}
	s.input = ""
	s.state = Idle
	s.mode = ViewDiff
	s.show()
	return cell, nil
}

// Regenerate asks the generator for new text and loads it as the input,
// previewing it at once. On failure the error is shown and nothing else
// changes.
func (s *Session) Regenerate(ctx context.Context, variant string) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if s.regen == nil {
		s.mu.Unlock()
		return "", ErrNoGenerator
	}
	if s.busy {
		s.mu.Unlock()
		return "", ErrBusy
	}
	if s.state == Idle {
		s.mu.Unlock()
		return "", ErrNotEditing
	}
	s.busy = true
	seq := s.seq
	s.mu.Unlock()

	cctx, done := s.callCtx(ctx)
	text, err := await(cctx, func(ctx context.Context) (string, error) {
		return s.regen.Regenerate(ctx, s.cell, variant)
	})
	done()

	s.mu.Lock()
	s.busy = false
	if s.closed || seq != s.seq {
		s.stale++
		s.mu.Unlock()
		if err != nil {
			return "", err
		}
		return text, ErrStaleResponse
	}
	if err != nil {
		err = fmt.Errorf("%w: regenerate: %w", ErrTransport, err)
		s.view.Notify(err)
		s.mu.Unlock()
		return "", err
	}
	s.state = Editing
	s.mode = ViewEdit
	s.input = text
	s.seq++
	s.debounce.Stop()
	s.show()
	s.mu.Unlock()

	s.issuePreview()
	return text, nil
}

// Cancel abandons the edit: the display reverts to the committed render
// at once, temporary bindings are released and anything in flight becomes
// stale. The session stays open in Idle. A save already in flight cannot
// be cancelled; Cancel returns ErrBusy until it completes.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state == Saving {
		return ErrBusy
	}
	s.cancelLocked()
	return nil
}

func (s *Session) cancelLocked() {
	if s.state == Idle {
		return
	}
	s.state = Cancelled
	s.debounce.Stop()
	s.seq++
	s.working = render.Cell{}
	s.input = ""
	s.mode = ViewDiff
	s.state = Idle
	s.show()
}

// Editing reports whether the session holds uncommitted input.
func (s *Session) Editing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && (s.state == Editing || s.state == Previewing)
}

// Hover highlights or clears the partner of pairID. It reports false for
// pairs with no live binding.
func (s *Session) Hover(pairID string, entering bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.corr.has(pairID) {
		return false
	}
	s.view.Highlight(pairID, entering)
	return true
}

// Scroll mirrors a pane's position to the other panes.
func (s *Session) Scroll(from Pane, pos float64) bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false
	}
	return s.scroll.Scroll(from, pos)
}

// close tears the session down for good.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.debounce.Stop()
	s.seq++
	s.closed = true
	s.corr.releaseAll()
	s.cancel()
}
