// Package grep searches cell texts with regular expressions.
//
// ls -q finds cells containing a substring; grep adds patterns and line
// context, with Unix semantics for -i, -v, -l, -c and -C. Reviewers use it
// to find untranslated terms or inconsistent wording across a review set.
package grep

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
	"github.com/jpl-au/cellrev/internal/validate"
)

// ErrInvalidColumn is returned for a column other than primary, secondary
// or both.
var ErrInvalidColumn = errors.New("column must be primary, secondary or both")

// ColumnBoth searches both texts.
const ColumnBoth = "both"

// Options configures a search.
type Options struct {
	Prefix      string // cell id prefix
	Column      string // primary, secondary or both; empty means secondary
	IncludeAll  bool   // include deleted cells
	DeletedOnly bool
	IDsOnly     bool // -l: print matching cell ids
	IgnoreCase  bool
	Invert      bool // -v: select non-matching lines
	CountOnly   bool // -c: matches per cell and column
	Context     int  // -C: lines around each match

	// MaxLineLength bounds the scanner buffer; 0 means 10MB.
	MaxLineLength int
}

// Match is one matching line.
type Match struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// Hit holds the matches in one column of one cell.
type Hit struct {
	Cell    store.Cell `json:"-"`
	ID      string     `json:"id"`
	Column  string     `json:"column"`
	Matches []Match    `json:"matches"`
}

// Result is the outcome of a search.
type Result struct {
	Hits []Hit `json:"hits"`
}

// IDs returns the distinct ids of matching cells in hit order.
func (r Result) IDs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, h := range r.Hits {
		if !seen[h.ID] {
			seen[h.ID] = true
			ids = append(ids, h.ID)
		}
	}
	return ids
}

// Run searches cells for pattern and writes grep-style output to w.
func Run(ctx context.Context, w io.Writer, svc service.Service, pattern string, opts Options) (Result, error) {
	res := Result{Hits: []Hit{}}

	columns, err := searchColumns(opts.Column)
	if err != nil {
		return res, err
	}
	if opts.Context < 0 {
		return res, fmt.Errorf("context lines must be >= 0, got %d", opts.Context)
	}

	flags := ""
	if opts.IgnoreCase {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		return res, fmt.Errorf("invalid regex: %w", err)
	}

	list, err := svc.List(ctx, store.ListOptions{
		Prefix:         opts.Prefix,
		IncludeDeleted: opts.IncludeAll,
		DeletedOnly:    opts.DeletedOnly,
	})
	if err != nil {
		return res, err
	}

	for _, c := range list {
		for _, col := range columns {
			text := c.Secondary
			if col == validate.ColumnPrimary {
				text = c.Primary
			}
			matches, err := matchLines(re, text, opts.Invert, opts.MaxLineLength)
			if err != nil {
				return res, fmt.Errorf("scanning %s: %w", c.CellID, err)
			}
			if len(matches) > 0 {
				res.Hits = append(res.Hits, Hit{Cell: c, ID: c.CellID, Column: col, Matches: matches})
			}
		}
	}

	switch {
	case opts.IDsOnly:
		for _, id := range res.IDs() {
			fmt.Fprintln(w, id)
		}
	case opts.CountOnly:
		for _, h := range res.Hits {
			fmt.Fprintf(w, "%s:%s:%d\n", h.ID, h.Column, len(h.Matches))
		}
	case opts.Context > 0:
		for _, h := range res.Hits {
			printContext(w, h, opts.Context)
		}
	default:
		for _, h := range res.Hits {
			for _, m := range h.Matches {
				fmt.Fprintf(w, "%s:%s:%d:%s\n", h.ID, h.Column, m.Line, m.Content)
			}
		}
	}
	return res, nil
}

func searchColumns(col string) ([]string, error) {
	switch col {
	case "", validate.ColumnSecondary:
		return []string{validate.ColumnSecondary}, nil
	case validate.ColumnPrimary:
		return []string{validate.ColumnPrimary}, nil
	case ColumnBoth:
		return []string{validate.ColumnPrimary, validate.ColumnSecondary}, nil
	}
	return nil, fmt.Errorf("%w, got %q", ErrInvalidColumn, col)
}

// printContext follows grep's convention: ":" after the line number marks a
// match, "-" marks context and "--" separates groups that do not touch.
func printContext(w io.Writer, h Hit, n int) {
	text := h.Cell.Secondary
	if h.Column == validate.ColumnPrimary {
		text = h.Cell.Primary
	}
	lines := strings.Split(text, "\n")
	hit := make(map[int]bool, len(h.Matches))
	for _, m := range h.Matches {
		hit[m.Line] = true
	}
	printed := make(map[int]bool)
	last := -1

	for _, m := range h.Matches {
		start := max(m.Line-n-1, 0)
		end := min(m.Line+n, len(lines))
		if last >= 0 && start > last+1 {
			fmt.Fprintln(w, "--")
		}
		for i := start; i < end; i++ {
			if printed[i] {
				continue
			}
			printed[i] = true
			sep := "-"
			if hit[i+1] {
				sep = ":"
			}
			fmt.Fprintf(w, "%s:%s%s%d%s%s\n", h.ID, h.Column, sep, i+1, sep, lines[i])
			last = i
		}
	}
}

// matchLines returns the lines of content that match re, or with invert
// those that do not.
func matchLines(re *regexp.Regexp, content string, invert bool, maxLineLength int) ([]Match, error) {
	if maxLineLength <= 0 {
		maxLineLength = 10 * 1024 * 1024
	}
	var matches []Match
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Text()
		if re.MatchString(line) != invert {
			matches = append(matches, Match{Line: n, Content: line})
		}
	}
	return matches, scanner.Err()
}
