// Package store defines cell persistence types and the Store interface.
// Implementations handle the database while consumers depend only on the
// interface.
package store

import (
	"encoding/json"
	"time"

	"github.com/jpl-au/cellrev/internal/validate"
)

// Cell is one version of a cell. Each write of the secondary text creates a
// new version; the primary and auxiliary texts are carried forward.
type Cell struct {
	ID        int64   // database primary key (internal)
	Key       string  // unique 8-char identifier for this version
	CellID    string  // cell identifier (e.g. "12", "Sheet1!B12")
	Row       int     // source row, used for default ordering
	Primary   string  // source text
	Secondary string  // derived text under review
	Auxiliary string  // optional extra source text for prompts
	Ratio     float64 // similarity of primary and secondary, 0-100
	Status    string  // "same" or "different"
	Version   int
	Author    string
	Message   string
	CreatedAt int64  // unix seconds
	DeletedAt *int64 // nil unless soft-deleted
}

// CellJSON is the API representation of a Cell.
type CellJSON struct {
	Key       string  `json:"key"`
	ID        string  `json:"id"`
	Row       int     `json:"row"`
	Primary   string  `json:"primary,omitempty"`
	Secondary string  `json:"secondary,omitempty"`
	Auxiliary string  `json:"auxiliary,omitempty"`
	Ratio     float64 `json:"ratio"`
	Status    string  `json:"status"`
	Version   int     `json:"version"`
	Author    string  `json:"author"`
	Message   string  `json:"message,omitempty"`
	CreatedAt string  `json:"created_at"`
	Deleted   bool    `json:"deleted,omitempty"`
}

// ToJSON converts a Cell to its API representation. content controls
// whether the texts are included.
func (c *Cell) ToJSON(content bool) CellJSON {
	j := CellJSON{
		Key:       c.Key,
		ID:        c.CellID,
		Row:       c.Row,
		Ratio:     c.Ratio,
		Status:    c.Status,
		Version:   c.Version,
		Author:    c.Author,
		Message:   c.Message,
		CreatedAt: time.Unix(c.CreatedAt, 0).UTC().Format(time.RFC3339),
		Deleted:   c.DeletedAt != nil,
	}
	if content {
		j.Primary = c.Primary
		j.Secondary = c.Secondary
		j.Auxiliary = c.Auxiliary
	}
	return j
}

// MarshalJSON encodes a value with indentation for human-readable CLI output.
func MarshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// CellInput is the content of a cell being imported.
type CellInput struct {
	ID        string `json:"id" yaml:"id"`
	Row       int    `json:"row,omitempty" yaml:"row,omitempty"`
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
	Auxiliary string `json:"auxiliary,omitempty" yaml:"auxiliary,omitempty"`
}

// PutOptions configures an import of a whole cell.
type PutOptions struct {
	Author     string
	Message    string
	Ratio      float64
	Status     string
	Replace    bool  // write a new version if the cell exists instead of failing
	MaxID      int   // 0 means no limit
	MaxContent int64 // 0 means no limit
}

// WriteOptions configures a write of secondary text.
type WriteOptions struct {
	Author     string
	Message    string
	Ratio      float64
	Status     string
	MaxContent int64
}

// Sort orders for List.
const (
	SortRow       = "row"
	SortID        = "id"
	SortRatioAsc  = "ratio"
	SortRatioDesc = "-ratio"
)

// ListOptions filters and orders a cell listing.
type ListOptions struct {
	Prefix   string   // cell id prefix
	Query    string   // substring of primary or secondary text
	MinRatio *float64 // inclusive
	MaxRatio *float64 // inclusive
	Below    *float64 // exclusive
	Above    *float64 // exclusive
	Status   string   // "same" or "different"

	// Approval filters on one column's marker. ApprovalColumn defaults to
	// secondary; Approval "none" matches cells with no marker.
	ApprovalColumn string
	Approval       string

	Sort   string
	Limit  int
	Offset int

	IncludeDeleted bool
	DeletedOnly    bool
}

// Approvals holds both column markers of a cell. An unmarked column reads
// as validate.ApprovalNone, never as "".
type Approvals struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// NoApprovals is a cell with neither column marked.
var NoApprovals = Approvals{Primary: validate.ApprovalNone, Secondary: validate.ApprovalNone}

// Unmarked reports whether neither column carries a marker.
func (a Approvals) Unmarked() bool {
	return a == NoApprovals || a == Approvals{}
}

// Comment is a freeform annotation on a cell.
type Comment struct {
	CellID    string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// Stats provides aggregate database statistics.
type Stats struct {
	Cells         int64   `json:"cells"`
	Deleted       int64   `json:"deleted"`
	TotalVersions int64   `json:"total_versions"`
	Same          int64   `json:"same"`
	Different     int64   `json:"different"`
	MeanRatio     float64 `json:"mean_ratio"`
	Comments      int64   `json:"comments"`
	Affirmed      int64   `json:"affirmed"`
	Caution       int64   `json:"caution"`
	Rejected      int64   `json:"rejected"`
	Authors       int64   `json:"authors"`
	OldestCell    *int64  `json:"oldest_cell,omitempty"`
	NewestCell    *int64  `json:"newest_cell,omitempty"`
}
