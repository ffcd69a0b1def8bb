// Package render turns diff scripts into the marked-up primary/secondary
// pair shown for a cell.
//
// Removed and added spans are wrapped in <span> tags carrying the pair id
// so the two halves of a replacement can be highlighted together. All
// literal text is escaped before embedding; the wrapper tags and <br> line
// breaks are the only markup produced. Rendering is a pure function of the
// script and safe for concurrent use.
package render

import (
	"html"
	"strings"

	"github.com/jpl-au/cellrev/internal/diff"
)

// Span classes.
const (
	ClassRemoved = "removed"
	ClassAdded   = "added"
)

// Cell is the rendered view of one diff. It is never patched; each
// computation produces a new Cell.
type Cell struct {
	Primary   string   `json:"primary"`
	Secondary string   `json:"secondary"`
	Pairs     []string `json:"pairs,omitempty"`
	Status    string   `json:"status"`
}

// Render produces the marked-up pair for s.
func Render(s diff.Script) Cell {
	var p, q strings.Builder
	for _, op := range s {
		switch op.Kind {
		case diff.Equal:
			text := escape(op.Text)
			p.WriteString(text)
			q.WriteString(text)
		case diff.Delete:
			span(&p, ClassRemoved, op)
		case diff.Insert:
			span(&q, ClassAdded, op)
		}
	}
	return Cell{
		Primary:   p.String(),
		Secondary: q.String(),
		Pairs:     s.Pairs(),
		Status:    s.Status(),
	}
}

// Raw renders both texts escaped with no highlighting. It is the fallback
// when a preview cannot be computed.
func Raw(primary, secondary string) Cell {
	status := diff.StatusDifferent
	if diff.Normalise(primary) == diff.Normalise(secondary) {
		status = diff.StatusSame
	}
	return Cell{
		Primary:   escape(diff.Normalise(primary)),
		Secondary: escape(diff.Normalise(secondary)),
		Status:    status,
	}
}

func span(b *strings.Builder, class string, op diff.Op) {
	b.WriteString(`<span class="`)
	b.WriteString(class)
	b.WriteString(`"`)
	if op.PairID != "" {
		b.WriteString(` data-diff-id="`)
		b.WriteString(html.EscapeString(op.PairID))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(escape(op.Text))
	b.WriteString("</span>")
}

// escape HTML-escapes s, then turns newlines into <br>.
func escape(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}
