// Package guide holds the embedded help pages shown by "cellrev guide"
// and "cellrev llm".
package guide

import (
	"embed"
	"io/fs"
	"runtime"
	"slices"
	"strings"
)

//go:embed *.md
var files embed.FS

// aliases send a command name to the page that documents it.
var aliases = map[string]string{
	"sed":     "edit",
	"grep":    "edit",
	"reset":   "approve",
	"rm":      "vacuum",
	"restore": "vacuum",
	"mcp":     "serve",
}

// Get returns a page by topic or command name. "" is the main guide and
// "install" the page for the running OS.
func Get(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "":
		name = "guide"
	case "install":
		name = "install-" + runtime.GOOS
	}
	if a, ok := aliases[name]; ok {
		name = a
	}
	data, err := files.ReadFile(name + ".md")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// List returns the topics in name order. The per-OS install pages are
// listed once as "install".
func List() ([]string, error) {
	names, err := fs.Glob(files, "*.md")
	if err != nil {
		return nil, err
	}
	topics := []string{"install"}
	for _, n := range names {
		n = strings.TrimSuffix(n, ".md")
		if n == "guide" || strings.HasPrefix(n, "install-") {
			continue
		}
		topics = append(topics, n)
	}
	slices.Sort(topics)
	return topics, nil
}
