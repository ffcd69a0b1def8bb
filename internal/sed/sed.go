// Package sed applies sed-style substitutions to the secondary text of
// cells.
//
// Expressions use the familiar s/old/new/ form with an optional g flag for
// every occurrence and i for case-insensitive matching. Any delimiter works
// (s|old|new|) and a backslash escapes it. The search text is literal, not a
// regular expression: reviewers fix recurring terms, not patterns.
package sed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jpl-au/cellrev/internal/edit"
)

var (
	// ErrInvalidExpr is returned when an expression is malformed.
	ErrInvalidExpr = errors.New("invalid sed expression")
	// ErrUnsupportedCommand is returned for anything but s.
	ErrUnsupportedCommand = errors.New("only substitution (s) commands are supported")
	// ErrTextNotFound is returned when no target cell contains the text.
	ErrTextNotFound = errors.New("text not found")
)

// Options configures a substitution run.
type Options struct {
	Author  string
	Message string
}

// Result lists what a run changed. Failed maps cell id to error text.
type Result struct {
	Edited    []string          `json:"edited"`
	Unchanged []string          `json:"unchanged,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// Expr is a parsed substitution.
type Expr struct {
	Old        string
	New        string
	Global     bool
	IgnoreCase bool
}

// Apply substitutes e in s. The bool reports whether anything matched.
func (e Expr) Apply(s string) (string, bool) {
	if e.IgnoreCase {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(e.Old))
		if !re.MatchString(s) {
			return s, false
		}
		repl := func(string) string { return e.New }
		if e.Global {
			return re.ReplaceAllStringFunc(s, repl), true
		}
		loc := re.FindStringIndex(s)
		return s[:loc[0]] + e.New + s[loc[1]:], true
	}

	if !strings.Contains(s, e.Old) {
		return s, false
	}
	n := 1
	if e.Global {
		n = -1
	}
	return strings.Replace(s, e.Old, e.New, n), true
}

// Run applies expr to each cell in ids and saves the ones that change.
// Cells without a match are reported unchanged; the run fails with
// ErrTextNotFound only when no cell matched.
func Run(ctx context.Context, w io.Writer, svc edit.Saver, ids []string, expr string, opts Options) (Result, error) {
	res := Result{Edited: []string{}}

	e, err := ParseExpr(expr)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		c, err := svc.Get(ctx, id, false)
		if err != nil {
			res.fail(id, err)
			continue
		}
		text, ok := e.Apply(c.Secondary)
		if !ok {
			res.Unchanged = append(res.Unchanged, id)
			continue
		}
		saved, err := svc.Save(ctx, id, text, opts.Author, opts.Message)
		if err != nil {
			res.fail(id, err)
			continue
		}
		res.Edited = append(res.Edited, id)
		fmt.Fprintf(w, "Edited %s v%d (%.2f%%, %s)\n", id, saved.Version, saved.Ratio, saved.Status())
	}

	if len(res.Edited) == 0 && len(res.Failed) == 0 {
		return res, fmt.Errorf("%w: %q", ErrTextNotFound, e.Old)
	}
	return res, nil
}

func (r *Result) fail(id string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]string)
	}
	r.Failed[id] = err.Error()
}

// ParseExpr parses s/old/new/ with optional g and i flags.
func ParseExpr(expr string) (Expr, error) {
	if len(expr) < 4 {
		return Expr{}, ErrInvalidExpr
	}
	if expr[0] != 's' {
		return Expr{}, ErrUnsupportedCommand
	}

	delim := expr[1]
	parts := splitByDelim(expr[2:], delim)
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return Expr{}, fmt.Errorf("%w: expected s%cold%cnew%c", ErrInvalidExpr, delim, delim, delim)
	}

	e := Expr{Old: parts[0], New: parts[1]}
	if len(parts) == 3 {
		for _, f := range parts[2] {
			switch f {
			case 'g':
				e.Global = true
			case 'i', 'I':
				e.IgnoreCase = true
			default:
				return Expr{}, fmt.Errorf("%w: unknown flag %q", ErrInvalidExpr, f)
			}
		}
	}
	return e, nil
}

// splitByDelim splits s on delim. A backslash escapes the next byte. A
// trailing empty field (after the closing delimiter) is dropped.
func splitByDelim(s string, delim byte) []string {
	var parts []string
	var cur strings.Builder
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == delim:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
