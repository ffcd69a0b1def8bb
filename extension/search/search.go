// Package search provides pattern search over cell texts.
// Registers commands: grep.
package search

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/service"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the search extension.
type Extension struct {
	svc service.Service
	cfg *config.Config
}

// Compile-time interface compliance.
var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "search".
func (e *Extension) Name() string { return "search" }

// Init connects to the shared service.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	e.cfg = ctx.Config()
	return nil
}

// Commands returns grep.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		e.newGrepCmd(),
	}
}

// MCPTools exposes grep to LLM clients.
func (e *Extension) MCPTools() []extension.MCPTool {
	return []extension.MCPTool{grepTool()}
}
