package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdit(t *testing.T) {
	env := newSeededEnv(t)

	out := env.run("edit", "1", "dog", "cat", "-a", "tester")
	env.contains(out, "Edited 1 v2")
	env.equals(env.run("cat", "1", "--raw"), "The cat sat on the rug")

	env.run("edit", "1", "--old", "RUG", "--new", "mat", "-i", "-a", "tester")
	var c cellJSON
	env.runJSON(&c, "cat", "1")
	assert.Equal(t, "The cat sat on the mat", c.Secondary)
	assert.Equal(t, 3, c.Version)
	assert.Equal(t, "same", c.Status)

	env.runStdin("Good night\n", "edit", "sheet2!A1", "-l", "1:1", "-a", "tester")
	env.equals(env.run("cat", "sheet2!A1", "--raw"), "Good night")
}

func TestEdit_Errors(t *testing.T) {
	env := newSeededEnv(t)

	out, err := env.runErr("edit", "1", "zebra", "horse", "-a", "tester")
	assert.Error(t, err)
	env.contains(out, "not found")

	_, err = env.runErr("edit", "1", "dog", "-a", "tester")
	assert.Error(t, err, "old without new")

	_, err = env.runErr("edit", "missing", "a", "b", "-a", "tester")
	assert.Error(t, err)

	_, err = env.runErr("edit", "1", "-l", "3:1", "-a", "tester")
	assert.Error(t, err)

	var c cellJSON
	env.runJSON(&c, "cat", "1")
	assert.Equal(t, 1, c.Version, "failed edits store nothing")
}

func TestSed(t *testing.T) {
	env := newSeededEnv(t)

	out := env.run("sed", "-i", "s/the/a/g", "1", "2", "-a", "tester")
	env.contains(out, "Edited 1 v2")
	env.equals(env.run("cat", "1", "--raw"), "The dog sat on a rug")

	var res struct {
		Edited    []string `json:"edited"`
		Unchanged []string `json:"unchanged"`
	}
	env.runJSON(&res, "sed", "-i", "s|good|Bad|i", "--prefix", "sheet2", "-a", "tester")
	assert.Equal(t, []string{"sheet2!A1"}, res.Edited)
	env.equals(env.run("cat", "sheet2!A1", "--raw"), "Bad evening")
}

func TestSed_Errors(t *testing.T) {
	env := newSeededEnv(t)

	_, err := env.runErr("sed", "s/a/b/", "1", "-a", "tester")
	assert.Error(t, err, "-i is required")

	_, err = env.runErr("sed", "-i", "y/a/b/", "1", "-a", "tester")
	assert.Error(t, err)

	_, err = env.runErr("sed", "-i", "s/zebra/horse/", "1", "2", "-a", "tester")
	assert.Error(t, err, "nothing matched")

	_, err = env.runErr("sed", "-i", "s/a/b/", "-a", "tester")
	assert.Error(t, err, "no ids")

	_, err = env.runErr("sed", "-i", "s/a/b/", "1", "--prefix", "1", "-a", "tester")
	assert.Error(t, err)
}

func TestGrep(t *testing.T) {
	env := newSeededEnv(t)

	env.equals(env.run("grep", "dog"), "1:secondary:1:The dog sat on the rug")
	env.equals(env.run("grep", "cat", "--column", "primary"), "1:primary:1:The cat sat on the mat")
	env.equals(env.run("grep", "-l", "-i", "HELLO|good"), "2\nsheet2!A1")
	env.equals(env.run("grep", "-c", "o", "sheet2"), "sheet2!A1:secondary:1")
	env.equals(env.run("grep", "-v", "o"), "")

	var ids []string
	env.runJSON(&ids, "grep", "-l", "e")
	assert.Equal(t, []string{"1", "2", "sheet2!A1"}, ids)

	var hits []struct {
		ID      string `json:"id"`
		Column  string `json:"column"`
		Matches []struct {
			Line int `json:"line"`
		} `json:"matches"`
	}
	env.runJSON(&hits, "grep", "world", "--column", "both")
	require.Len(t, hits, 2)
	assert.Equal(t, "primary", hits[0].Column)
	assert.Equal(t, "secondary", hits[1].Column)

	_, err := env.runErr("grep", "(")
	assert.Error(t, err)
	_, err = env.runErr("grep", "x", "--column", "third")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	env := newSeededEnv(t)
	env.run("approve", "1", "rejected", "-a", "alice")

	out := env.run("export", "-")
	env.contains(out, "cells:")
	env.contains(out, "secondary: The dog sat on the rug")
	env.contains(out, "auxiliary: greeting on the title page")

	env.contains(env.run("export", "out.yaml"), "Exported 3 cells to out.yaml")
	_, err := env.runErr("export", "out.yaml")
	assert.Error(t, err, "file exists")
	env.run("export", "out.yaml", "--force", "--status", "same")

	// The export imports into a fresh store.
	fresh := newTestEnv(t)
	fresh.write("out.yaml", env.run("export", "-", "--status", "different"))
	fresh.run("import", "out.yaml", "-a", "tester")
	fresh.equals(fresh.run("ls", "--ids"), "1\nsheet2!A1")

	cmd := env.command("export", "-", "--approval", "rejected", "-o", "json")
	raw, err := cmd.Output()
	require.NoError(t, err)
	var doc struct {
		Cells []struct {
			ID        string `json:"id"`
			Approvals struct {
				Secondary string `json:"secondary"`
			} `json:"approvals"`
		} `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Cells, 1)
	assert.Equal(t, "1", doc.Cells[0].ID)
	assert.Equal(t, "rejected", doc.Cells[0].Approvals.Secondary)

	_, err = env.runErr("export", "-", "--prefix", "nothing")
	assert.Error(t, err)
}
