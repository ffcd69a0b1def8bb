// events.go defines the notifications extensions receive about cell changes.
//
// Events are fired after the change is committed. Handlers observe; they
// cannot veto.

package extension

// EventType identifies the kind of event.
type EventType string

const (
	EventCellSave     EventType = "cell:save"
	EventCellImport   EventType = "cell:import"
	EventCellDelete   EventType = "cell:delete"
	EventCellRestore  EventType = "cell:restore"
	EventApproval     EventType = "cell:approval"
	EventCommentSave  EventType = "cell:comment"
	EventRatiosUpdate EventType = "cell:ratios"
)

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	EventCell() string
}

// CellSaveEvent is fired after new secondary text is stored.
type CellSaveEvent struct {
	ID      string
	Version int
	Author  string
	Status  string
	Ratio   float64
	Text    string
}

func (e CellSaveEvent) EventType() EventType { return EventCellSave }
func (e CellSaveEvent) EventCell() string    { return e.ID }

// CellImportEvent is fired once per imported cell.
type CellImportEvent struct {
	ID       string
	Version  int
	Replaced bool
}

func (e CellImportEvent) EventType() EventType { return EventCellImport }
func (e CellImportEvent) EventCell() string    { return e.ID }

// CellDeleteEvent is fired after a cell is soft-deleted or restored.
type CellDeleteEvent struct {
	ID       string
	Restored bool
}

func (e CellDeleteEvent) EventType() EventType {
	if e.Restored {
		return EventCellRestore
	}
	return EventCellDelete
}
func (e CellDeleteEvent) EventCell() string { return e.ID }

// ApprovalEvent is fired when a column marker changes. Status "none" means
// the marker was cleared.
type ApprovalEvent struct {
	ID     string
	Column string
	Status string
	Author string
}

func (e ApprovalEvent) EventType() EventType { return EventApproval }
func (e ApprovalEvent) EventCell() string    { return e.ID }

// CommentEvent is fired after a comment is saved or cleared.
type CommentEvent struct {
	ID     string
	Text   string
	Author string
}

func (e CommentEvent) EventType() EventType { return EventCommentSave }
func (e CommentEvent) EventCell() string    { return e.ID }

// RatiosEvent is fired after a bulk ratio recalculation. Prefix is the cell
// id prefix the run covered.
type RatiosEvent struct {
	Prefix  string
	Updated int
}

func (e RatiosEvent) EventType() EventType { return EventRatiosUpdate }
func (e RatiosEvent) EventCell() string    { return e.Prefix }

// EventHandler is implemented by extensions that want to receive events.
type EventHandler interface {
	HandleEvent(ctx Context, e Event) error
}
