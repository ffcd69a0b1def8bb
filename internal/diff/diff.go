// Package diff computes identity-preserving word diffs between the primary
// and secondary text of a cell.
//
// A Script is an ordered list of Equal, Delete and Insert operations. The
// primary projection (Equal + Delete) reconstructs the primary text and the
// secondary projection (Equal + Insert) reconstructs the secondary text.
// Adjacent Delete/Insert operations judged to be a replacement of
// like-for-like content share a PairID so the two spans can be
// highlight-correlated when rendered.
package diff

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sentinel errors.
var (
	ErrInvalidInput = errors.New("invalid diff input")
	ErrTooLarge     = errors.New("too many distinct tokens to diff")
)

// Cell status values.
const (
	StatusSame      = "same"
	StatusDifferent = "different"
)

// Kind identifies an edit operation.
type Kind int

const (
	Equal Kind = iota
	Delete
	Insert
)

func (k Kind) String() string {
	switch k {
	case Equal:
		return "equal"
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name so JSON output stays readable.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "equal":
		*k = Equal
	case "delete":
		*k = Delete
	case "insert":
		*k = Insert
	default:
		return fmt.Errorf("unknown op kind %q", b)
	}
	return nil
}

// Op is a single edit operation. PairID is empty for unpaired operations
// and always empty for Equal.
type Op struct {
	Kind   Kind   `json:"kind"`
	Text   string `json:"text"`
	PairID string `json:"pair_id,omitempty"`
}

// Script is an ordered sequence of operations.
type Script []Op

// Primary returns the primary-side projection (Equal + Delete).
func (s Script) Primary() string {
	return s.project(Delete)
}

// Secondary returns the secondary-side projection (Equal + Insert).
func (s Script) Secondary() string {
	return s.project(Insert)
}

func (s Script) project(side Kind) string {
	var b strings.Builder
	for _, op := range s {
		if op.Kind == Equal || op.Kind == side {
			b.WriteString(op.Text)
		}
	}
	return b.String()
}

// Pairs returns the distinct PairIDs in script order.
func (s Script) Pairs() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, op := range s {
		if op.PairID == "" || seen[op.PairID] {
			continue
		}
		seen[op.PairID] = true
		ids = append(ids, op.PairID)
	}
	return ids
}

// Identical reports whether the script contains no changes.
func (s Script) Identical() bool {
	for _, op := range s {
		if op.Kind != Equal {
			return false
		}
	}
	return true
}

// Status returns StatusSame or StatusDifferent.
func (s Script) Status() string {
	if s.Identical() {
		return StatusSame
	}
	return StatusDifferent
}

// Similarity returns 2*M/T*100 where M is the rune count of the Equal text
// and T the rune count of both sides combined. Two empty texts are 100.
func (s Script) Similarity() float64 {
	var matched, total int
	for _, op := range s {
		n := utf8.RuneCountInString(op.Text)
		switch op.Kind {
		case Equal:
			matched += n
			total += 2 * n
		default:
			total += n
		}
	}
	if total == 0 {
		return 100
	}
	return 200 * float64(matched) / float64(total)
}

// Normalise converts CRLF and lone CR line endings to LF.
func Normalise(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
