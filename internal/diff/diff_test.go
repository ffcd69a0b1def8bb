package diff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		primary   string
		secondary string
		want      Script
	}{
		{
			name:      "pure insertion",
			primary:   "The quick fox",
			secondary: "The quick brown fox",
			want: Script{
				{Kind: Equal, Text: "The quick "},
				{Kind: Insert, Text: "brown "},
				{Kind: Equal, Text: "fox"},
			},
		},
		{
			name:      "adjacent replacement",
			primary:   "Hello world",
			secondary: "Hello earth",
			want: Script{
				{Kind: Equal, Text: "Hello "},
				{Kind: Delete, Text: "world", PairID: "p1"},
				{Kind: Insert, Text: "earth", PairID: "p1"},
			},
		},
		{
			name:      "empty primary",
			primary:   "",
			secondary: "new text",
			want:      Script{{Kind: Insert, Text: "new text"}},
		},
		{
			name:      "empty secondary",
			primary:   "old text",
			secondary: "",
			want:      Script{{Kind: Delete, Text: "old text"}},
		},
		{
			name:      "pure deletion",
			primary:   "The quick brown fox",
			secondary: "The quick fox",
			want: Script{
				{Kind: Equal, Text: "The quick "},
				{Kind: Delete, Text: "brown "},
				{Kind: Equal, Text: "fox"},
			},
		},
		{
			name:      "two replacements",
			primary:   "The cat sat on the mat",
			secondary: "The dog sat on the rug",
			want: Script{
				{Kind: Equal, Text: "The "},
				{Kind: Delete, Text: "cat", PairID: "p1"},
				{Kind: Insert, Text: "dog", PairID: "p1"},
				{Kind: Equal, Text: " sat on the "},
				{Kind: Delete, Text: "mat", PairID: "p2"},
				{Kind: Insert, Text: "rug", PairID: "p2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.primary, tt.secondary)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_Identical(t *testing.T) {
	for _, s := range []string{"", "same", "two\nlines", "  spaced  "} {
		got, err := Compute(s, s)
		require.NoError(t, err)
		require.Len(t, got, 1, "input %q", s)
		assert.Equal(t, Equal, got[0].Kind)
		assert.Equal(t, s, got[0].Text)
		assert.Empty(t, got.Pairs())
		assert.Equal(t, StatusSame, got.Status())
	}
}

func TestCompute_RoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"The quick fox", "The quick brown fox"},
		{"Hello world", "Hello earth"},
		{"", "new text"},
		{"a b c d e", "e d c b a"},
		{"line one\nline two\n", "line one\nline 2\nline three\n"},
		{"Ça va? Très bien.", "Ça va! Très très bien..."},
		{"日本語のテキスト", "日本語の文章"},
		{"emoji 👍 here", "emoji 👎 there"},
		{"tabs\tand  spaces", "tabs and\tspaces"},
		{"<b>bold</b> & co", "<i>bold</i> &amp; co"},
		{"completely different", "nothing alike here"},
	}

	for _, p := range pairs {
		s, err := Compute(p[0], p[1])
		require.NoError(t, err)
		assert.Equal(t, p[0], s.Primary(), "primary projection of %q", p[0])
		assert.Equal(t, p[1], s.Secondary(), "secondary projection of %q", p[1])
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a := "The committee approved the budget on Monday, after a long debate."
	b := "On Monday the committee finally approved a revised budget after debate."

	first, err := Compute(a, b)
	require.NoError(t, err)
	for range 5 {
		again, err := Compute(a, b)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompute_PairSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"The cat sat on the mat", "The dog sat on the rug"},
		{"one two three four", "one 2 three 4"},
		{"Hello world, hello moon", "Hello earth, hello sun"},
	}

	for _, p := range pairs {
		s, err := Compute(p[0], p[1])
		require.NoError(t, err)

		byID := make(map[string][]Op)
		for _, op := range s {
			if op.PairID != "" {
				byID[op.PairID] = append(byID[op.PairID], op)
			}
		}
		for id, ops := range byID {
			require.Len(t, ops, 2, "pair %s in %q", id, p[0])
			assert.NotEqual(t, ops[0].Kind, ops[1].Kind)
			assert.NotEqual(t, Equal, ops[0].Kind)
			assert.NotEqual(t, Equal, ops[1].Kind)
		}
	}
}

func TestCompute_DisjointHasNoPairs(t *testing.T) {
	s, err := Compute("foo bar", "baz qux")
	require.NoError(t, err)
	assert.Equal(t, Script{
		{Kind: Delete, Text: "foo bar"},
		{Kind: Insert, Text: "baz qux"},
	}, s)
	assert.Empty(t, s.Pairs())
}

func TestCompute_LineEndings(t *testing.T) {
	s, err := Compute("line one\r\nline two", "line one\nline two")
	require.NoError(t, err)
	assert.True(t, s.Identical())
	assert.Equal(t, "line one\nline two", s.Primary())

	s, err = Compute("line one\r\nline two\r", "line one\nline 2\n")
	require.NoError(t, err)
	require.NotEmpty(t, s)
	assert.Equal(t, Op{Kind: Equal, Text: "line one\nline "}, s[0])
	assert.Equal(t, "line one\nline two\n", s.Primary())
}

func TestCompute_InvalidInput(t *testing.T) {
	_, err := Compute("\xff\xfe", "ok")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Compute("ok", string([]byte{0xc3}))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompute_Threshold(t *testing.T) {
	t.Run("below threshold stays unpaired", func(t *testing.T) {
		s, err := Compute("Hello world", "Hello w")
		require.NoError(t, err)
		assert.Empty(t, s.Pairs())
	})

	t.Run("zero threshold pairs any anchored replacement", func(t *testing.T) {
		e := New(Options{PairThreshold: 0})
		s, err := e.Compute("Hello world", "Hello w")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, s.Pairs())
	})

	t.Run("levenshtein metric", func(t *testing.T) {
		e := New(Options{PairMetric: MetricLevenshtein, PairThreshold: 0.5})

		s, err := e.Compute("Hello world", "Hello earth")
		require.NoError(t, err)
		assert.Empty(t, s.Pairs())

		s, err = e.Compute("Hello colour", "Hello color")
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, s.Pairs())
	})
}

func TestScript_Similarity(t *testing.T) {
	s, err := Compute("Hello world", "Hello earth")
	require.NoError(t, err)
	assert.InDelta(t, 54.545, s.Similarity(), 0.01)

	s, err = Compute("", "")
	require.NoError(t, err)
	assert.Equal(t, 100.0, s.Similarity())

	s, err = Compute("", "all new")
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Similarity())
	assert.Equal(t, StatusDifferent, s.Status())
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", "", MetricLength))
	assert.Equal(t, 0.0, Similarity("", "x", MetricLength))
	assert.Equal(t, 0.5, Similarity("ab", "abcd", MetricLength))
	assert.Equal(t, 1.0, Similarity("world", "earth", MetricLength))
	assert.InDelta(t, 0.2, Similarity("world", "earth", MetricLevenshtein), 0.001)
	assert.Equal(t, 1.0, Similarity("日本", "日本", MetricLevenshtein))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricLength, m)

	m, err = ParseMetric("levenshtein")
	require.NoError(t, err)
	assert.Equal(t, MetricLevenshtein, m)

	_, err = ParseMetric("cosine")
	assert.ErrorContains(t, err, "unknown pair metric")
}

func TestKind_JSON(t *testing.T) {
	b, err := json.Marshal(Op{Kind: Delete, Text: "x", PairID: "p1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"delete","text":"x","pair_id":"p1"}`, string(b))

	var op Op
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"insert","text":"y"}`), &op))
	assert.Equal(t, Op{Kind: Insert, Text: "y"}, op)
}
