// Package edit changes part of a cell's secondary text and stores the
// result as a new version. Reviewers fix one phrase without retyping the
// whole cell; the save path still normalises and re-diffs the text.
package edit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
)

var (
	// ErrTextNotFound is returned when the search text is not in the cell.
	ErrTextNotFound = errors.New("text not found")
	// ErrInvalidLineRange is returned when a line range is malformed.
	ErrInvalidLineRange = errors.New("invalid line range")
)

// Options configures a search/replace edit.
type Options struct {
	Old             string
	New             string
	CaseInsensitive bool
	Author          string
	Message         string
}

// LineRangeOptions configures a line-range edit. Lines are 1-indexed and
// inclusive; 0 leaves that end open.
type LineRangeOptions struct {
	Start   int
	End     int
	Author  string
	Message string
}

// Result is the outcome of an edit.
type Result struct {
	ID      string  `json:"id"`
	Version int     `json:"version"`
	Ratio   float64 `json:"ratio"`
	Status  string  `json:"status"`
}

// Saver reads a cell and stores its new secondary text. service.Service
// implements it.
type Saver interface {
	Get(ctx context.Context, id string, includeDeleted bool) (*store.Cell, error)
	Save(ctx context.Context, id, text, author, message string) (*service.SaveResult, error)
}

// Run replaces the first occurrence of opts.Old in the cell's secondary
// text.
func Run(ctx context.Context, w io.Writer, svc Saver, id string, opts Options) (Result, error) {
	return apply(ctx, w, svc, id, opts.Author, opts.Message, func(text string) (string, error) {
		return Replace(text, opts.Old, opts.New, opts.CaseInsensitive)
	})
}

// RunLineRange replaces a range of lines of the cell's secondary text.
func RunLineRange(ctx context.Context, w io.Writer, svc Saver, id, replacement string, opts LineRangeOptions) (Result, error) {
	return apply(ctx, w, svc, id, opts.Author, opts.Message, func(text string) (string, error) {
		return ReplaceLines(text, opts.Start, opts.End, replacement)
	})
}

func apply(ctx context.Context, w io.Writer, svc Saver, id, author, msg string, change func(string) (string, error)) (Result, error) {
	r := Result{ID: id}

	c, err := svc.Get(ctx, id, false)
	if err != nil {
		return r, err
	}
	text, err := change(c.Secondary)
	if err != nil {
		return r, err
	}
	res, err := svc.Save(ctx, id, text, author, msg)
	if err != nil {
		return r, err
	}

	r.Version, r.Ratio, r.Status = res.Version, res.Ratio, res.Status()
	fmt.Fprintf(w, "Edited %s v%d (%.2f%%, %s)\n", id, r.Version, r.Ratio, r.Status)
	return r, nil
}

// Replace swaps the first occurrence of old in content for repl. With
// caseInsensitive the match ignores case; repl is inserted as given.
func Replace(content, old, repl string, caseInsensitive bool) (string, error) {
	if old == "" {
		return "", fmt.Errorf("%w: empty search text", ErrTextNotFound)
	}
	if !caseInsensitive {
		i := strings.Index(content, old)
		if i < 0 {
			return "", fmt.Errorf("%w: %q", ErrTextNotFound, old)
		}
		return content[:i] + repl + content[i+len(old):], nil
	}

	// Lower-casing can change byte lengths, so locate the match with a
	// case-folding regexp rather than by index into a lowered copy.
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(old))
	loc := re.FindStringIndex(content)
	if loc == nil {
		return "", fmt.Errorf("%w: %q", ErrTextNotFound, old)
	}
	return content[:loc[0]] + repl + content[loc[1]:], nil
}

// ReplaceLines swaps lines start..end (1-indexed, inclusive) of content for
// replacement. start 0 means the first line and end 0 the last; an end past
// the last line is clamped. An empty replacement deletes the lines.
func ReplaceLines(content string, start, end int, replacement string) (string, error) {
	lines := strings.Split(content, "\n")
	n := len(lines)

	if start == 0 {
		start = 1
	}
	if end == 0 || end > n {
		end = n
	}
	switch {
	case start < 1:
		return "", fmt.Errorf("%w: start line must be >= 1, got %d", ErrInvalidLineRange, start)
	case start > n:
		return "", fmt.Errorf("%w: start line %d is past the last line %d", ErrInvalidLineRange, start, n)
	case end < start:
		return "", fmt.Errorf("%w: end line %d is before start line %d", ErrInvalidLineRange, end, start)
	}

	out := make([]string, 0, n)
	out = append(out, lines[:start-1]...)
	if r := strings.TrimSuffix(replacement, "\n"); r != "" {
		out = append(out, strings.Split(r, "\n")...)
	}
	out = append(out, lines[end:]...)
	return strings.Join(out, "\n"), nil
}

// ParseLineRange reads "5:10", "5:" or ":10". A missing side is returned
// as 0.
func ParseLineRange(s string) (start, end int, err error) {
	lo, hi, ok := strings.Cut(s, ":")
	if !ok || strings.Contains(hi, ":") {
		return 0, 0, fmt.Errorf("%w: %q (expected start:end)", ErrInvalidLineRange, s)
	}
	if lo == "" && hi == "" {
		return 0, 0, fmt.Errorf("%w: %q (give a start or an end line)", ErrInvalidLineRange, s)
	}
	if start, err = lineNumber("start", lo); err != nil {
		return 0, 0, err
	}
	if end, err = lineNumber("end", hi); err != nil {
		return 0, 0, err
	}
	if start > 0 && end > 0 && start > end {
		return 0, 0, fmt.Errorf("%w: start line %d is after end line %d", ErrInvalidLineRange, start, end)
	}
	return start, end, nil
}

func lineNumber(which, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s line must be a number >= 1, got %q", ErrInvalidLineRange, which, s)
	}
	return n, nil
}
