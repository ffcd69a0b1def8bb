package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApprove(t *testing.T) {
	env := newSeededEnv(t)

	out := env.run("approve", "1", "green", "-a", "alice")
	env.contains(out, "primary: none")
	env.contains(out, "secondary: affirmed")

	out = env.run("approve", "1", "caution", "-c", "primary", "-a", "alice")
	env.contains(out, "primary: caution")

	long := env.run("ls", "-l")
	env.contains(long, "affirmed")

	env.equals(env.run("ls", "--approval", "affirmed", "--ids"), "1")
	env.equals(env.run("ls", "--approval", "caution", "--column", "primary", "--ids"), "1")

	// Saving a new version keeps the markers.
	env.run("save", "1", "The cat sat on the rug", "-a", "bob")
	env.contains(env.run("approve", "1", "affirmed", "-a", "bob"), "primary: caution")

	out = env.run("approve", "1", "--reset", "-a", "alice")
	env.contains(out, "primary: none  secondary: none")
}

func TestApprove_Errors(t *testing.T) {
	env := newSeededEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown status", []string{"approve", "1", "maybe", "-a", "alice"}},
		{"unknown column", []string{"approve", "1", "green", "-c", "third", "-a", "alice"}},
		{"missing status", []string{"approve", "1", "-a", "alice"}},
		{"reset with status", []string{"approve", "1", "green", "--reset", "-a", "alice"}},
		{"missing cell", []string{"approve", "nope", "green", "-a", "alice"}},
		{"no author", []string{"approve", "1", "green"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.runErr(tc.args...)
			assert.Error(t, err)
		})
	}
}

func TestComment(t *testing.T) {
	env := newSeededEnv(t)

	env.equals(env.run("comment", "1"), "")

	env.equals(env.run("comment", "1", "check the animal", "-a", "alice"), "check the animal")
	env.equals(env.run("comment", "1"), "check the animal")
	env.contains(env.run("cat", "1"), "# check the animal")

	var got map[string]string
	env.runJSON(&got, "comment", "1")
	assert.Equal(t, "check the animal", got["comment"])

	env.run("comment", "1", "--clear", "-a", "alice")
	env.equals(env.run("comment", "1"), "")

	_, err := env.runErr("comment", "1", "text", "--clear", "-a", "alice")
	assert.Error(t, err)
	_, err = env.runErr("comment", "nope", "text", "-a", "alice")
	assert.Error(t, err)
}
