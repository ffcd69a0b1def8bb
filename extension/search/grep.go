// grep.go implements "cellrev grep". ls -q matches a plain substring
// anywhere in a cell; grep works line by line with a regular expression and
// reports where each match sits.

package search

import (
	"context"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/grep"
	"github.com/jpl-au/cellrev/internal/log"
)

func (e *Extension) newGrepCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "grep <pattern> [prefix]",
		Short: "Search cell texts using regex",
		Long: `Search cell texts using regular expressions, like Unix grep.
Output lines are id:column:line:text.

  cellrev grep "fichero"                  # secondary texts
  cellrev grep -i "file|folder" --column both
  cellrev grep -l "TODO" Sheet1!          # matching ids only
  cellrev grep -C 1 "error"               # with context`,
		Args: cobra.RangeArgs(1, 2),
		RunE: e.runGrep,
	}
	c.Flags().BoolP(extension.FlagFilesWithMatch, "l", false, "Only print ids of matching cells")
	c.Flags().BoolP(extension.FlagIgnoreCase, "i", false, "Ignore case distinctions")
	c.Flags().BoolP(extension.FlagInvertMatch, "v", false, "Select non-matching lines")
	c.Flags().BoolP(extension.FlagCount, "c", false, "Only print match counts per cell")
	c.Flags().IntP(extension.FlagContext, "C", 0, "Print N lines of context around matches")
	c.Flags().String(extension.FlagColumn, "", "primary, secondary or both (default secondary)")
	c.Flags().BoolP(extension.FlagDeleted, "D", false, "Search deleted cells only")
	c.Flags().BoolP(extension.FlagAll, "A", false, "Search all cells (including deleted)")
	c.MarkFlagsMutuallyExclusive(extension.FlagAll, extension.FlagDeleted)
	return c
}

func (e *Extension) runGrep(c *cobra.Command, args []string) error {
	ctx := c.Context()
	pattern := args[0]

	opts := grep.Options{MaxLineLength: int(e.cfg.MaxContent())}
	if len(args) > 1 {
		opts.Prefix = args[1]
	}
	opts.IncludeAll, _ = c.Flags().GetBool(extension.FlagAll)
	opts.DeletedOnly, _ = c.Flags().GetBool(extension.FlagDeleted)
	opts.IDsOnly, _ = c.Flags().GetBool(extension.FlagFilesWithMatch)
	opts.IgnoreCase, _ = c.Flags().GetBool(extension.FlagIgnoreCase)
	opts.Invert, _ = c.Flags().GetBool(extension.FlagInvertMatch)
	opts.CountOnly, _ = c.Flags().GetBool(extension.FlagCount)
	opts.Context, _ = c.Flags().GetInt(extension.FlagContext)
	opts.Column, _ = c.Flags().GetString(extension.FlagColumn)

	w := cmd.Out()
	if cmd.JSON() {
		w = io.Discard
	}

	result, err := grep.Run(ctx, w, e.svc, pattern, opts)

	log.Event("search:grep", "search").
		Author(cmd.Author()).
		Detail("pattern", pattern).
		Detail("prefix", opts.Prefix).
		Detail("count", len(result.Hits)).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("grep %q: %w", pattern, err))
	}
	if opts.IDsOnly {
		return cmd.PrintJSON(result.IDs())
	}
	return cmd.PrintJSON(result.Hits)
}

func grepTool() extension.MCPTool {
	return extension.MCPTool{
		Tool: mcp.NewTool("cellrev_grep",
			mcp.WithDescription("Search cell texts line by line with a regular expression"),
			mcp.WithString("pattern", mcp.Required(), mcp.Description("Regular expression (RE2 syntax)")),
			mcp.WithString("prefix", mcp.Description("Only cells whose id starts with this")),
			mcp.WithString("column", mcp.Description("primary, secondary or both (default secondary)")),
			mcp.WithBoolean("ignore_case", mcp.Description("Case-insensitive matching")),
		),
		Handler: func(ctx context.Context, extCtx extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			pattern, err := req.RequireString("pattern")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			res, err := grep.Run(ctx, io.Discard, extCtx.Service(), pattern, grep.Options{
				Prefix:        req.GetString("prefix", ""),
				Column:        req.GetString("column", ""),
				IgnoreCase:    req.GetBool("ignore_case", false),
				MaxLineLength: int(extCtx.Config().MaxContent()),
			})

			log.Event("mcp:cellrev_grep", "search").
				Detail("pattern", pattern).
				Detail("count", len(res.Hits)).
				Write(err)

			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return extension.JSONResult(res)
		},
	}
}
