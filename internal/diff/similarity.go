package diff

import (
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Metric names a similarity measure used to decide whether an adjacent
// Delete/Insert pair is a replacement.
type Metric string

const (
	// MetricLength compares rune counts: shorter / longer.
	MetricLength Metric = "length"
	// MetricLevenshtein is 1 - editDistance / longer, over runes.
	MetricLevenshtein Metric = "levenshtein"
)

// DefaultPairThreshold is the minimum similarity for a pair.
const DefaultPairThreshold = 0.5

// Options tune pairing.
type Options struct {
	PairMetric    Metric
	PairThreshold float64
}

// DefaultOptions returns the length metric with DefaultPairThreshold.
func DefaultOptions() Options {
	return Options{PairMetric: MetricLength, PairThreshold: DefaultPairThreshold}
}

// ParseMetric validates a metric name. An empty name selects MetricLength.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricLength:
		return MetricLength, nil
	case MetricLevenshtein:
		return MetricLevenshtein, nil
	}
	return "", fmt.Errorf("unknown pair metric %q (expected length or levenshtein)", s)
}

// Similarity returns a score in [0, 1] for a and b under m. Two empty
// strings score 1; one empty string scores 0.
func Similarity(a, b string, m Metric) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	longer := max(la, lb)

	switch m {
	case MetricLevenshtein:
		d := levenshtein.ComputeDistance(a, b)
		return 1 - float64(d)/float64(longer)
	default:
		return float64(min(la, lb)) / float64(longer)
	}
}
