// Package format prints cells for the CLI.
//
// Command implementations decide what to show; this package handles column
// alignment and truncation. Widths are measured in terminal cells with
// go-runewidth so CJK and other wide text lines up.
package format

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/jpl-au/cellrev/internal/diff"
	"github.com/jpl-au/cellrev/internal/render"
	"github.com/jpl-au/cellrev/internal/store"
)

// DefaultWidth is the text column width used when the terminal width is
// unknown.
const DefaultWidth = 40

// Annotated is a cell with the annotations the long listing shows.
type Annotated struct {
	store.Cell
	Approvals store.Approvals
	Comment   string
}

// oneLine collapses whitespace so multi-line text fits a table row.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate fits s to width terminal cells, marking the cut with "…".
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(oneLine(s), width, "…")
}

// pad left-aligns s in width terminal cells.
func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func widest(header string, values []string) int {
	w := runewidth.StringWidth(header)
	for _, v := range values {
		w = max(w, runewidth.StringWidth(v))
	}
	return w
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// List prints one line per cell: id, ratio and status.
func List(w io.Writer, cells []store.Cell) error {
	ids := make([]string, len(cells))
	for i := range cells {
		ids[i] = cells[i].CellID
	}
	width := widest("ID", ids)
	for _, c := range cells {
		deleted := ""
		if c.DeletedAt != nil {
			deleted = " [deleted]"
		}
		fmt.Fprintf(w, "%s  %6.2f  %s%s\n", pad(c.CellID, width), c.Ratio, c.Status, deleted)
	}
	return nil
}

// Long prints a table with row, ratio, status, approvals, version, author
// and the secondary text truncated to textWidth.
func Long(w io.Writer, cells []Annotated, textWidth int) error {
	if len(cells) == 0 {
		return nil
	}
	if textWidth <= 0 {
		textWidth = DefaultWidth
	}

	ids := make([]string, len(cells))
	authors := make([]string, len(cells))
	for i := range cells {
		ids[i] = cells[i].CellID
		authors[i] = dash(cells[i].Author)
	}
	idW := widest("ID", ids)
	authorW := widest("AUTHOR", authors)

	fmt.Fprintf(w, "%s  %5s  %6s  %-9s  %-8s  %-8s  %4s  %-10s  %s  %s\n",
		pad("ID", idW), "ROW", "RATIO", "STATUS", "PRIMARY", "SECOND", "VER", "UPDATED", pad("AUTHOR", authorW), "TEXT")

	for i, c := range cells {
		date := time.Unix(c.CreatedAt, 0).Format("2006-01-02")
		text := Truncate(c.Secondary, textWidth)
		if c.Comment != "" {
			text += " #"
		}
		fmt.Fprintf(w, "%s  %5d  %6.2f  %-9s  %-8s  %-8s  v%-3d  %s  %s  %s\n",
			pad(c.CellID, idW), c.Row, c.Ratio, c.Status,
			dash(c.Approvals.Primary), dash(c.Approvals.Secondary),
			c.Version, date, pad(authors[i], authorW), text)
	}
	return nil
}

// Cell prints both texts of a cell with the diff marked for a terminal.
func Cell(w io.Writer, c *store.Cell, sc diff.Script, colour bool) error {
	fmt.Fprintf(w, "%s  v%d  %.2f%%  %s\n", c.CellID, c.Version, c.Ratio, c.Status)
	fmt.Fprint(w, render.Format(sc, "primary", "secondary", colour))
	if c.Auxiliary != "" {
		fmt.Fprintf(w, "~~~ auxiliary\n%s\n", c.Auxiliary)
	}
	return nil
}

// History prints version history, newest first.
func History(w io.Writer, versions []store.Cell) error {
	authors := make([]string, len(versions))
	for i := range versions {
		authors[i] = dash(versions[i].Author)
	}
	authorW := widest("AUTHOR", authors)

	for i, c := range versions {
		t := time.Unix(c.CreatedAt, 0)
		msg := "-"
		if c.Message != "" {
			msg = fmt.Sprintf("%q", c.Message)
		}
		fmt.Fprintf(w, "%s  v%-3d  %s  %6.2f  %s  %s\n",
			c.Key, c.Version, t.Format("2006-01-02 15:04"), c.Ratio, pad(authors[i], authorW), msg)
	}
	return nil
}

// Differ computes word diffs; *diff.Engine implements it.
type Differ interface {
	Compute(a, b string) (diff.Script, error)
}

// HistoryDiff prints how the secondary text changed between consecutive
// versions. versions are newest first, as History returns them.
func HistoryDiff(w io.Writer, d Differ, versions []store.Cell, colour bool) error {
	for i := 0; i < len(versions)-1; i++ {
		newer, older := versions[i], versions[i+1]

		t := time.Unix(newer.CreatedAt, 0)
		fmt.Fprintf(w, "=== v%d -> v%d (%s by %s) ===\n",
			older.Version, newer.Version, t.Format("2006-01-02 15:04"), dash(newer.Author))
		if newer.Message != "" {
			fmt.Fprintf(w, "Message: %s\n", newer.Message)
		}

		sc, err := d.Compute(older.Secondary, newer.Secondary)
		if err != nil {
			return fmt.Errorf("v%d -> v%d: %w", older.Version, newer.Version, err)
		}
		fmt.Fprint(w, render.Format(sc, fmt.Sprintf("v%d", older.Version), fmt.Sprintf("v%d", newer.Version), colour))
		fmt.Fprintln(w)
	}
	return nil
}

// IDs prints just cell ids, one per line.
func IDs(w io.Writer, cells []store.Cell) error {
	for _, c := range cells {
		fmt.Fprintln(w, c.CellID)
	}
	return nil
}
