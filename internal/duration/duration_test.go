package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"12h": 12 * time.Hour,
		"1d":  day,
		"7d":  7 * day,
		"2w":  14 * day,
		"3m":  90 * day,
		"1y":  365 * day,
		"0d":  0,
	} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "7", "d", "7s", "-1d", "+1d", "1.5d", "7 d", "99999999999d"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}
