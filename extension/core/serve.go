// serve.go implements "cellrev serve", the MCP server over stdio. It is
// storeless: the server opens the store itself and can start before one
// exists.

package core

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start MCP server",
		Long: `Start an MCP (Model Context Protocol) server over stdio for LLM integration.

Use --db to serve a specific review set:
  cellrev serve --db sheet2    # serve cellrev-sheet2.db`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return mcp.Serve(cmd.DB())
		},
	}
}
