// The cmd/ package holds CLI integration tests that exercise the full stack:
// command parsing -> extension -> service -> store -> SQLite.
//
// The binary is built once and each test runs it in its own temporary
// directory with HOME pointed beneath it, so no global config leaks in.

package cmd

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	binaryPath string
	buildOnce  sync.Once
	buildErr   error
)

// buildBinary compiles the cellrev binary once for all tests.
func buildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		tmpDir, err := os.MkdirTemp("", "cellrev-test-bin-*")
		if err != nil {
			buildErr = err
			return
		}

		binaryName := "cellrev"
		if os.PathSeparator == '\\' {
			binaryName = "cellrev.exe"
		}
		binaryPath = filepath.Join(tmpDir, binaryName)

		wd := mustGetwd()
		projectRoot := filepath.Dir(wd)

		cmd := exec.Command("go", "build", "-o", binaryPath, ".")
		cmd.Dir = projectRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = &buildError{err: err, output: string(out)}
			return
		}
	})

	if buildErr != nil {
		t.Fatalf("failed to build binary: %v", buildErr)
	}
	return binaryPath
}

type buildError struct {
	err    error
	output string
}

func (e *buildError) Error() string {
	return e.err.Error() + "\n" + e.output
}

func mustGetwd() string {
	dir, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return dir
}

// testEnv holds test environment state.
type testEnv struct {
	t      *testing.T
	dir    string
	binary string
}

// newTestEnv creates a temporary directory with an initialised store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{t: t, dir: t.TempDir(), binary: buildBinary(t)}
	env.run("init")
	return env
}

// newSeededEnv is newTestEnv plus the cells in testCells.
func newSeededEnv(t *testing.T) *testEnv {
	t.Helper()

	env := newTestEnv(t)
	env.write("cells.yaml", testCells)
	env.run("import", "cells.yaml", "-a", "tester")
	return env
}

func (e *testEnv) command(args ...string) *exec.Cmd {
	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.dir
	home := filepath.Join(e.dir, "home")
	cmd.Env = append(os.Environ(),
		"HOME="+home,
		"USERPROFILE="+home,
		"CELLREV_DB=",
		"CELLREV_DIR=",
		"CELLREV_AUTHOR=",
		"NO_COLOR=1",
	)
	return cmd
}

// run executes cellrev with the given args and returns its output.
func (e *testEnv) run(args ...string) string {
	e.t.Helper()
	out, err := e.runErr(args...)
	if err != nil {
		e.t.Fatalf("cellrev %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

// runErr executes cellrev and returns its output and any error.
func (e *testEnv) runErr(args ...string) (string, error) {
	e.t.Helper()
	out, err := e.command(args...).CombinedOutput()
	return string(out), err
}

// runStdin executes cellrev with stdin input.
func (e *testEnv) runStdin(input string, args ...string) string {
	e.t.Helper()
	cmd := e.command(args...)
	cmd.Stdin = strings.NewReader(input)
	out, err := cmd.CombinedOutput()
	if err != nil {
		e.t.Fatalf("cellrev %v failed: %v\noutput: %s", args, err, out)
	}
	return string(out)
}

// runJSON executes cellrev with -o json and decodes stdout into v.
func (e *testEnv) runJSON(v any, args ...string) {
	e.t.Helper()
	cmd := e.command(append(args, "-o", "json")...)
	out, err := cmd.Output()
	require.NoError(e.t, err, "cellrev %v", args)
	require.NoError(e.t, json.Unmarshal(out, v), "decode %s", out)
}

// write creates a file in the test directory.
func (e *testEnv) write(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// contains checks if output contains expected string.
func (e *testEnv) contains(output, expected string) {
	e.t.Helper()
	assert.Contains(e.t, output, expected)
}

// equals checks if output equals expected string (trimmed).
func (e *testEnv) equals(output, expected string) {
	e.t.Helper()
	assert.Equal(e.t, strings.TrimSpace(expected), strings.TrimSpace(output))
}

// testCells is a small review set: one pair that differs, one that
// matches, and one with auxiliary context.
const testCells = `cells:
  - id: "1"
    primary: The cat sat on the mat
    secondary: The dog sat on the rug
  - id: "2"
    primary: Hello world
    secondary: Hello world
  - id: "sheet2!A1"
    primary: Good morning
    secondary: Good evening
    auxiliary: greeting on the title page
`
