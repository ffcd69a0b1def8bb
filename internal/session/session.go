// Package session runs interactive edits of a single cell: debounced live
// preview, save, regenerate and cancel, with every hover correlation the
// session registers released on every way out.
//
// A Registry owns the sessions, keyed by cell id, and is the only place
// that decides which cell is being edited. A Session never touches another
// cell. Responses from collaborators carry the sequence number they were
// issued under and are dropped when it is no longer current.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jpl-au/cellrev/internal/render"
)

var (
	// ErrStaleResponse marks a response superseded by later input or by a
	// cancel. It is counted, never shown to the user.
	ErrStaleResponse = errors.New("stale response")
	// ErrTransport wraps a collaborator failure during preview, save or
	// regenerate.
	ErrTransport = errors.New("transport failure")
	// ErrSessionClosed is returned by every operation on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrBusy is returned when a save or regenerate is already in flight.
	ErrBusy = errors.New("session busy")
	// ErrNotEditing is returned by Save on a session with nothing to save.
	ErrNotEditing = errors.New("session not editing")
	// ErrNoGenerator is returned by Regenerate when none is configured.
	ErrNoGenerator = errors.New("no text generator configured")
)

// State is the session state machine position.
type State int

const (
	Idle State = iota
	Editing
	Previewing
	Saving
	Cancelled
)

var stateNames = [...]string{"idle", "editing", "previewing", "saving", "cancelled"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	i, err := lookup(stateNames[:], string(b), "state")
	*s = State(i)
	return err
}

// ViewMode selects which of the three mutually exclusive displays a cell
// shows.
type ViewMode int

const (
	// ViewDiff shows the committed render.
	ViewDiff ViewMode = iota
	// ViewEdit shows the input with its live preview.
	ViewEdit
	// ViewRaw shows the input with unhighlighted texts after a failed preview.
	ViewRaw
)

var viewNames = [...]string{"diff", "edit", "raw"}

func (v ViewMode) String() string {
	if int(v) < len(viewNames) {
		return viewNames[v]
	}
	return fmt.Sprintf("ViewMode(%d)", int(v))
}

// MarshalText encodes the view mode by name.
func (v ViewMode) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText decodes a view mode name.
func (v *ViewMode) UnmarshalText(b []byte) error {
	i, err := lookup(viewNames[:], string(b), "view mode")
	*v = ViewMode(i)
	return err
}

func lookup(names []string, s, what string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

// Frame is everything a view needs to draw one cell.
type Frame struct {
	Cell      string   `json:"cell"`
	State     State    `json:"state"`
	View      ViewMode `json:"view"`
	Primary   string   `json:"primary"`
	Secondary string   `json:"secondary"`
	Pairs     []string `json:"pairs,omitempty"`
	Status    string   `json:"status"`
	Input     string   `json:"input,omitempty"`
	Seq       uint64   `json:"seq"`
}

// Compose builds the frame for a cell. The view mode alone decides which
// render is shown: the committed one in ViewDiff, the working one (preview
// or raw fallback) otherwise. The input is only part of editing frames.
func Compose(cell string, st State, v ViewMode, committed, working render.Cell, input string, seq uint64) Frame {
	f := Frame{Cell: cell, State: st, View: v, Seq: seq}
	shown := committed
	if v != ViewDiff {
		shown = working
		f.Input = input
	}
	f.Primary = shown.Primary
	f.Secondary = shown.Secondary
	f.Pairs = shown.Pairs
	f.Status = shown.Status
	return f
}

// Previewer renders a text pair without storing it.
type Previewer interface {
	Preview(ctx context.Context, primary, secondary string) (render.Cell, error)
}

// Saver persists new secondary text and returns the cell as stored. The
// stored text may differ from what was submitted, since markup is stripped
// on the way in.
type Saver interface {
	Save(ctx context.Context, cellID, text string) (Baseline, error)
}

// Regenerator produces a new candidate secondary text.
type Regenerator interface {
	Regenerate(ctx context.Context, cellID, variant string) (string, error)
}

// PreviewFunc adapts a function to Previewer.
type PreviewFunc func(ctx context.Context, primary, secondary string) (render.Cell, error)

func (f PreviewFunc) Preview(ctx context.Context, primary, secondary string) (render.Cell, error) {
	return f(ctx, primary, secondary)
}

// SaveFunc adapts a function to Saver.
type SaveFunc func(ctx context.Context, cellID, text string) (Baseline, error)

func (f SaveFunc) Save(ctx context.Context, cellID, text string) (Baseline, error) {
	return f(ctx, cellID, text)
}

// RegenerateFunc adapts a function to Regenerator.
type RegenerateFunc func(ctx context.Context, cellID, variant string) (string, error)

func (f RegenerateFunc) Regenerate(ctx context.Context, cellID, variant string) (string, error) {
	return f(ctx, cellID, variant)
}

// View is the display region of one cell. Sessions call it while holding
// their lock, so implementations must not call back into the Session.
type View interface {
	// Show replaces what the cell displays.
	Show(Frame)
	// Correlate binds hover highlighting between the two spans of a pair
	// and returns the function that unbinds it.
	Correlate(pairID string) (dispose func())
	// Highlight turns the partner highlight of a pair on or off.
	Highlight(pairID string, on bool)
	// Notify reports an error the user should see.
	Notify(err error)
	// Scroll moves one pane to pos, a fraction of its scroll height.
	Scroll(pane Pane, pos float64)
}

// Baseline is the committed content of a cell: what editing starts from
// and what a save leaves behind.
type Baseline struct {
	Primary   string
	Secondary string
	// Rendered is the committed render. When empty, the texts are shown
	// unhighlighted until the first save.
	Rendered render.Cell
}
