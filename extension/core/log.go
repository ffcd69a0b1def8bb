// log.go implements "cellrev log", a view of the audit log for the
// current project. The audit database lives in the home directory, so the
// command is storeless.

package core

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/repo"
)

type logEntry struct {
	Time    string         `json:"time"`
	Source  string         `json:"source"`
	Action  string         `json:"action"`
	Author  string         `json:"author,omitempty"`
	Cell    string         `json:"cell,omitempty"`
	Version int            `json:"version,omitempty"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
}

func newLogCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "log",
		Short: "Show recent audit log entries",
		Long: `Show what was done to this project's cells, newest first.

Every command, MCP tool call and web request is logged to
~/.cellrev/log/cellrev-log.db.`,
		Args: cobra.NoArgs,
		RunE: runLog,
	}
	c.Flags().IntP(extension.FlagLimit, "n", 20, "Number of entries")
	return c
}

func runLog(c *cobra.Command, _ []string) error {
	limit, _ := c.Flags().GetInt(extension.FlagLimit)

	if dir, err := projectDir(); err == nil {
		log.SetProject(dir)
	}
	entries, err := log.Recent(limit)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("read log: %w", err))
	}

	out := make([]logEntry, 0, len(entries))
	for _, e := range entries {
		v := e.ResultVersion
		if v == 0 {
			v = e.Version
		}
		out = append(out, logEntry{
			Time:    time.UnixMilli(e.Start).Format(time.RFC3339),
			Source:  e.Source,
			Action:  e.Action,
			Author:  e.Author,
			Cell:    e.Cell,
			Version: v,
			Success: e.Success,
			Error:   e.Error,
			Detail:  e.Detail,
		})
	}
	if cmd.JSON() {
		return cmd.PrintJSON(out)
	}

	w := cmd.Out()
	for _, e := range out {
		mark := "ok"
		if !e.Success {
			mark = "ERR"
		}
		fmt.Fprintf(w, "%s  %-3s  %-22s %-10s", e.Time[:19], mark, e.Source, e.Action)
		if e.Cell != "" {
			fmt.Fprintf(w, "  %s", e.Cell)
			if e.Version > 0 {
				fmt.Fprintf(w, " v%d", e.Version)
			}
		}
		if e.Author != "" {
			fmt.Fprintf(w, "  (%s)", e.Author)
		}
		if e.Error != "" {
			fmt.Fprintf(w, "  %s", e.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// projectDir finds the .cellrev directory the way the store is found.
func projectDir() (string, error) {
	if d := cmd.Dir(); d != "" {
		return filepath.Abs(filepath.Join(d, repo.Dir))
	}
	return repo.DiscoverDir()
}
