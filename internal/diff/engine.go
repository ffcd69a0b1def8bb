// engine.go runs the word-level diff.
//
// Both texts are split into UAX #29 word segments (words, whitespace runs,
// punctuation and newlines are separate tokens). Each distinct token is
// mapped to a rune so diffmatchpatch can run its Myers bisect over token
// sequences, then the result is mapped back to text. The timeout is disabled
// so the same inputs always produce the same script.

package diff

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Surrogates are not valid runes, so token indices skip over them.
const (
	surrogateMin = 0xD800
	surrogateLen = 0x800
	maxTokens    = utf8.MaxRune + 1 - surrogateLen
)

// Engine computes diff scripts. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	opts Options
	dmp  *diffmatchpatch.DiffMatchPatch
}

// New returns an engine using opts. Zero-valued fields take their defaults.
func New(opts Options) *Engine {
	if opts.PairMetric == "" {
		opts.PairMetric = MetricLength
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	return &Engine{opts: opts, dmp: dmp}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Compute diffs primary against secondary using default options.
func Compute(primary, secondary string) (Script, error) {
	return New(DefaultOptions()).Compute(primary, secondary)
}

// Compute returns the edit script transforming primary into secondary.
// Line endings are normalised first; the projections of the returned script
// reconstruct the normalised texts.
func (e *Engine) Compute(primary, secondary string) (Script, error) {
	if !utf8.ValidString(primary) || !utf8.ValidString(secondary) {
		return nil, ErrInvalidInput
	}
	a, b := Normalise(primary), Normalise(secondary)

	switch {
	case a == b:
		return Script{{Kind: Equal, Text: a}}, nil
	case a == "":
		return Script{{Kind: Insert, Text: b}}, nil
	case b == "":
		return Script{{Kind: Delete, Text: a}}, nil
	}

	var t tokens
	ra, err := t.encode(a)
	if err != nil {
		return nil, err
	}
	rb, err := t.encode(b)
	if err != nil {
		return nil, err
	}

	s := t.decode(e.dmp.DiffMainRunes(ra, rb, false))
	s = merge(s)
	s = foldWhitespace(s)
	e.pair(s)
	return s, nil
}

// tokens interns word segments as runes.
type tokens struct {
	index map[string]rune
	text  []string
}

func (t *tokens) encode(s string) ([]rune, error) {
	if t.index == nil {
		t.index = make(map[string]rune)
	}
	var out []rune
	seg := words.FromString(s)
	for seg.Next() {
		tok := seg.Value()
		r, ok := t.index[tok]
		if !ok {
			if len(t.text) >= maxTokens {
				return nil, ErrTooLarge
			}
			r = tokenRune(len(t.text))
			t.index[tok] = r
			t.text = append(t.text, tok)
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *tokens) decode(diffs []diffmatchpatch.Diff) Script {
	s := make(Script, 0, len(diffs))
	for _, d := range diffs {
		var b strings.Builder
		for _, r := range d.Text {
			b.WriteString(t.text[tokenIndex(r)])
		}
		s = append(s, Op{Kind: kindOf(d.Type), Text: b.String()})
	}
	return s
}

func tokenRune(i int) rune {
	if i >= surrogateMin {
		i += surrogateLen
	}
	return rune(i)
}

func tokenIndex(r rune) int {
	i := int(r)
	if i >= surrogateMin+surrogateLen {
		i -= surrogateLen
	}
	return i
}

func kindOf(t diffmatchpatch.Operation) Kind {
	switch t {
	case diffmatchpatch.DiffDelete:
		return Delete
	case diffmatchpatch.DiffInsert:
		return Insert
	}
	return Equal
}

// merge drops empty operations, joins adjacent equalities and collapses each
// run of changes between equalities into one Delete followed by one Insert.
func merge(s Script) Script {
	out := make(Script, 0, len(s))
	var del, ins strings.Builder

	flush := func() {
		if del.Len() > 0 {
			out = append(out, Op{Kind: Delete, Text: del.String()})
			del.Reset()
		}
		if ins.Len() > 0 {
			out = append(out, Op{Kind: Insert, Text: ins.String()})
			ins.Reset()
		}
	}

	for _, op := range s {
		if op.Text == "" {
			continue
		}
		switch op.Kind {
		case Delete:
			del.WriteString(op.Text)
		case Insert:
			ins.WriteString(op.Text)
		default:
			flush()
			if n := len(out); n > 0 && out[n-1].Kind == Equal {
				out[n-1].Text += op.Text
				continue
			}
			out = append(out, op)
		}
	}
	flush()
	return out
}

// foldWhitespace absorbs whitespace-only equalities that sit between two
// change runs into those runs, so unrelated sentences are reported as one
// replacement rather than a chain of word swaps joined by shared spaces.
// The input must already be merged.
func foldWhitespace(s Script) Script {
	folded := false
	out := make(Script, 0, len(s))
	for i, op := range s {
		if op.Kind == Equal && isBlank(op.Text) && i > 0 && i < len(s)-1 && replaces(s, i) {
			out = append(out, Op{Kind: Delete, Text: op.Text}, Op{Kind: Insert, Text: op.Text})
			folded = true
			continue
		}
		out = append(out, op)
	}
	if !folded {
		return s
	}
	return merge(out)
}

// replaces reports whether the change runs either side of s[i] together
// both remove and add text.
func replaces(s Script, i int) bool {
	var del, ins bool
	for j := i - 1; j >= 0 && s[j].Kind != Equal; j-- {
		del = del || s[j].Kind == Delete
		ins = ins || s[j].Kind == Insert
	}
	for j := i + 1; j < len(s) && s[j].Kind != Equal; j++ {
		del = del || s[j].Kind == Delete
		ins = ins || s[j].Kind == Insert
	}
	return del && ins
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// pair assigns PairIDs to adjacent Delete/Insert operations. A script with
// no non-blank equality is a total replacement and gets no pairs.
func (e *Engine) pair(s Script) {
	anchored := false
	for _, op := range s {
		if op.Kind == Equal && !isBlank(op.Text) {
			anchored = true
			break
		}
	}
	if !anchored {
		return
	}

	n := 0
	for i := 0; i+1 < len(s); i++ {
		a, b := s[i], s[i+1]
		if a.Kind == Equal || b.Kind == Equal || a.Kind == b.Kind {
			continue
		}
		if Similarity(a.Text, b.Text, e.opts.PairMetric) < e.opts.PairThreshold {
			continue
		}
		n++
		id := "p" + strconv.Itoa(n)
		s[i].PairID = id
		s[i+1].PairID = id
		i++
	}
}
