package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("list shows defaults", func(t *testing.T) {
		env := newTestEnv(t)

		out := env.run("config")
		env.contains(out, "author.name")
		env.contains(out, "diff.pair_metric: length")
		env.contains(out, "web.addr: 127.0.0.1:8080")
		env.contains(out, "processing.batch_size: 5")
	})

	t.Run("get after set", func(t *testing.T) {
		env := newTestEnv(t)

		env.run("config", "author.name", "Test User")
		env.equals(env.run("config", "author.name"), "Test User")
	})

	t.Run("local scope", func(t *testing.T) {
		env := newTestEnv(t)

		out := env.run("config", "--local", "processing.batch_size", "2")
		env.contains(out, "(local)")
		assert.FileExists(t, filepath.Join(env.dir, ".cellrev", "config.yaml"))
		env.equals(env.run("config", "processing.batch_size"), "2")
	})

	t.Run("author from config", func(t *testing.T) {
		env := newSeededEnv(t)

		_, err := env.runErr("save", "1", "text")
		assert.Error(t, err)

		env.run("config", "author.name", "Configured")
		env.run("save", "1", "text")
		var c cellJSON
		env.runJSON(&c, "cat", "1")
		assert.Equal(t, "Configured", c.Author)
	})

	t.Run("author from env", func(t *testing.T) {
		env := newSeededEnv(t)
		env.run("config", "author.name", "Configured")

		save := env.command("save", "1", "from env")
		save.Env = append(save.Env, "CELLREV_AUTHOR=envoy")
		out, err := save.CombinedOutput()
		require.NoError(t, err, string(out))

		var c cellJSON
		env.runJSON(&c, "cat", "1")
		assert.Equal(t, "envoy", c.Author, "env beats config")

		env.run("save", "1", "from flag", "-a", "flagged")
		env.runJSON(&c, "cat", "1")
		assert.Equal(t, "flagged", c.Author)
	})
}

func TestConfig_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"author.email", "new@example.com"},
		{"diff.pair_metric", "levenshtein"},
		{"diff.pair_threshold", "0.7"},
		{"session.quiet_ms", "150"},
		{"generator.provider", "anthropic"},
		{"web.addr", "127.0.0.1:9000"},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			env := newTestEnv(t)

			env.run("config", tc.key, tc.value)
			env.equals(env.run("config", tc.key), tc.value)
		})
	}
}

func TestConfig_Errors(t *testing.T) {
	env := newTestEnv(t)

	for _, args := range [][]string{
		{"config", "invalid.key", "value"},
		{"config", "invalid.key"},
		{"config", "diff.pair_metric", "soundex"},
		{"config", "processing.batch_size", "many"},
	} {
		_, err := env.runErr(args...)
		assert.Error(t, err, "%v", args)
	}

	// Failed sets leave no file behind.
	_, err := os.Stat(filepath.Join(env.dir, ".cellrev", "config.yaml"))
	assert.True(t, os.IsNotExist(err))
}
