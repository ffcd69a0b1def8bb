package render

import (
	"fmt"
	"strings"

	"github.com/jpl-au/cellrev/internal/diff"
)

const (
	red   = "\033[31m"
	green = "\033[32m"
	reset = "\033[0m"
)

// Side selects which projection Colourise prints.
type Side int

const (
	Primary Side = iota
	Secondary
)

// Colourise renders one side of s for a terminal. Removed text is red and
// added text green. Without colour, changes are bracketed as [-removed-] and
// {+added+} so they survive pipes and logs.
func Colourise(s diff.Script, side Side, colour bool) string {
	var b strings.Builder
	for _, op := range s {
		switch {
		case op.Kind == diff.Equal:
			b.WriteString(op.Text)
		case op.Kind == diff.Delete && side == Primary:
			mark(&b, op.Text, red, "[-", "-]", colour)
		case op.Kind == diff.Insert && side == Secondary:
			mark(&b, op.Text, green, "{+", "+}", colour)
		}
	}
	return b.String()
}

func mark(b *strings.Builder, text, code, left, right string, colour bool) {
	if colour {
		b.WriteString(code + text + reset)
		return
	}
	b.WriteString(left + text + right)
}

// Format returns both sides of s under labelled headers.
func Format(s diff.Script, oldLabel, newLabel string, colour bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", oldLabel)
	b.WriteString(strings.TrimSuffix(Colourise(s, Primary, colour), "\n"))
	fmt.Fprintf(&b, "\n+++ %s\n", newLabel)
	b.WriteString(strings.TrimSuffix(Colourise(s, Secondary, colour), "\n"))
	b.WriteString("\n")
	return b.String()
}
