package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/cellrev/internal/diff"
)

func TestDefaults(t *testing.T) {
	var c Config
	assert.Equal(t, diff.DefaultOptions(), c.DiffOptions())
	assert.Equal(t, DefaultQuiet, c.Quiet())
	assert.Equal(t, DefaultTimeout, c.Timeout())
	assert.Equal(t, DefaultBatchSize, c.BatchSize())
	assert.Equal(t, DefaultMaxRetries, c.MaxRetries())
	assert.Equal(t, time.Duration(0), c.RetryDelay())
	assert.Equal(t, "gemini", c.Provider())
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultWebAddr, c.WebAddr())
	assert.Equal(t, int64(DefaultMaxContent), c.MaxContent())
}

func TestModelDefaultOnlyForGemini(t *testing.T) {
	c := Config{Generator: Generator{Provider: "anthropic"}}
	assert.Empty(t, c.Model())
}

func TestSetGet(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"author.name", "Ana", "Ana"},
		{"diff.pair_metric", "levenshtein", "levenshtein"},
		{"diff.pair_threshold", "0.75", "0.75"},
		{"session.quiet_ms", "150", "150"},
		{"session.timeout_ms", "5000", "5000"},
		{"processing.batch_size", "10", "10"},
		{"processing.max_retries", "0", "0"},
		{"processing.retry_delay_ms", "250", "250"},
		{"generator.provider", "openai", "openai"},
		{"generator.max_tokens", "1024", "1024"},
		{"web.addr", ":9000", ":9000"},
		{"limits.max_content", "2048", "2048"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			var c Config
			require.NoError(t, c.Set(tt.key, tt.value))
			got, err := c.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, c.IsSet(tt.key))
		})
	}
}

func TestSetRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"diff.pair_metric", "cosine"},
		{"diff.pair_threshold", "1.5"},
		{"diff.pair_threshold", "abc"},
		{"processing.batch_size", "11"},
		{"processing.batch_size", "0"},
		{"session.timeout_ms", "10"},
		{"generator.provider", "mystery"},
		{"limits.max_content", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			var c Config
			assert.ErrorIs(t, c.Set(tt.key, tt.value), ErrInvalidValue)
		})
	}
}

func TestUnknownKey(t *testing.T) {
	var c Config
	_, err := c.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.ErrorIs(t, c.Set("nope", "x"), ErrUnknownKey)
	assert.False(t, IsValidKey("nope"))
	assert.True(t, IsValidKey("diff.pair_threshold"))
}

func TestAllCoversValidKeys(t *testing.T) {
	var c Config
	all := c.All()
	for _, k := range ValidKeys() {
		assert.Contains(t, all, k)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	var c Config
	require.NoError(t, c.Set("diff.pair_threshold", "0.6"))
	require.NoError(t, c.Set("generator.provider", "anthropic"))
	require.NoError(t, c.SaveScope(ScopeLocal))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ScopeLocal, loaded.Scope())
	assert.Equal(t, 0.6, loaded.DiffOptions().PairThreshold)
	assert.Equal(t, "anthropic", loaded.Provider())
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, Dir), 0755))
	require.NoError(t, os.WriteFile(LocalPath(), []byte("processing:\n  batch_size: 50\n"), 0644))

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, Dir), 0755))
	require.NoError(t, os.WriteFile(LocalPath(), []byte("diff: [unclosed"), 0644))

	_, err := Load()
	assert.ErrorContains(t, err, "malformed config file")
}
