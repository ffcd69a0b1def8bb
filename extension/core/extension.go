// Package core provides the core extension for cellrev.
// It registers commands: init, config, serve, web, guide, llm, vacuum, db,
// stats, log and version.
package core

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/service"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the core extension.
type Extension struct {
	svc service.Service
	cfg *config.Config
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
	_ extension.Storeless     = (*Extension)(nil)
)

// Name returns "core".
func (e *Extension) Name() string { return "core" }

// Init keeps the shared service for vacuum and stats.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	e.cfg = ctx.Config()
	return nil
}

// Commands returns the workspace and server commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		newInitCmd(),
		newConfigCmd(),
		newServeCmd(),
		newWebCmd(),
		newGuideCmd(),
		newLlmCmd(),
		e.newVacuumCmd(),
		e.newStatsCmd(),
		newLogCmd(),
		newDBCmd(),
		newVersionCmd(),
	}
}

// MCPTools returns nil; the built-in tools live in internal/mcp.
func (e *Extension) MCPTools() []extension.MCPTool {
	return nil
}

// NoStoreCommands returns commands that manage their own service lifecycle
// or never touch a store. serve and web own theirs because they outlive a
// single command; log reads the audit database.
func (e *Extension) NoStoreCommands() []string {
	return []string{"serve", "web", "db", "log", "version"}
}
