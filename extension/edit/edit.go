// Package edit provides the edit extension: partial changes to secondary
// text. Registers commands: edit, sed.
package edit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/edit"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/sed"
	"github.com/jpl-au/cellrev/internal/service"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the edit extension.
type Extension struct {
	svc service.Service
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "edit".
func (e *Extension) Name() string { return "edit" }

// Init receives the shared service.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	return nil
}

// Commands returns edit and sed.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		e.newEditCmd(),
		e.newSedCmd(),
	}
}

// --- edit command ---

func (e *Extension) newEditCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "edit <id> [old] [new]",
		Short: "Change part of a cell's secondary text",
		Long: `Edit a cell's secondary text by replacing text or lines. The result is
saved as a new version and re-diffed against the primary text.

Search/replace mode (first occurrence):
  cellrev edit 12 "fichero" "archivo"
  cellrev edit 12 --old "fichero" --new "archivo"
  cellrev edit 12 -i "FICHERO" "archivo"     # case-insensitive

Line range mode (replaces lines with stdin):
  cellrev edit 12 -l 2:3 <<< "replacement lines"`,
		Args: cobra.RangeArgs(1, 3),
		RunE: e.runEdit,
	}
	c.Flags().String(extension.FlagOld, "", "Text to find")
	c.Flags().String(extension.FlagNew, "", "Text to replace with")
	c.Flags().StringP(extension.FlagLines, "l", "", "Line range (e.g., 2:3)")
	c.Flags().BoolP(extension.FlagIgnoreCase, "i", false, "Case-insensitive matching")
	return c
}

func (e *Extension) runEdit(c *cobra.Command, args []string) error {
	ctx := c.Context()
	lineRange, _ := c.Flags().GetString(extension.FlagLines)
	id := args[0]

	w := cmd.Out()
	if cmd.JSON() {
		w = io.Discard
	}

	var result edit.Result
	var err error
	if lineRange != "" {
		result, err = e.editLines(ctx, w, id, lineRange)
	} else {
		result, err = e.editReplace(ctx, w, c, args)
	}

	log.Event("edit:edit", "write").
		Author(cmd.Author()).
		Cell(id).
		ResultVersion(result.Version).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("edit %q: %w", id, err))
	}
	return cmd.PrintJSON(result)
}

func (e *Extension) editLines(ctx context.Context, w io.Writer, id, lineRange string) (edit.Result, error) {
	start, end, err := edit.ParseLineRange(lineRange)
	if err != nil {
		return edit.Result{}, err
	}
	replacement, err := io.ReadAll(os.Stdin)
	if err != nil {
		return edit.Result{}, fmt.Errorf("read stdin: %w", err)
	}
	return edit.RunLineRange(ctx, w, e.svc, id, string(replacement), edit.LineRangeOptions{
		Start:   start,
		End:     end,
		Author:  cmd.Author(),
		Message: cmd.Message(),
	})
}

func (e *Extension) editReplace(ctx context.Context, w io.Writer, c *cobra.Command, args []string) (edit.Result, error) {
	old, _ := c.Flags().GetString(extension.FlagOld)
	repl, _ := c.Flags().GetString(extension.FlagNew)
	ignoreCase, _ := c.Flags().GetBool(extension.FlagIgnoreCase)
	switch len(args) {
	case 3:
		old, repl = args[1], args[2]
	case 2:
		return edit.Result{}, errors.New("give both old and new text")
	}
	if old == "" {
		return edit.Result{}, errors.New("old text is required (use positional args or --old)")
	}
	return edit.Run(ctx, w, e.svc, args[0], edit.Options{
		Old:             old,
		New:             repl,
		CaseInsensitive: ignoreCase,
		Author:          cmd.Author(),
		Message:         cmd.Message(),
	})
}

// --- sed command ---

func (e *Extension) newSedCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "sed -i <expression> [id]... | --prefix <prefix>",
		Short: "Substitute text across cells",
		Long: `Apply a sed-style substitution to the secondary text of cells.

  cellrev sed -i 's/fichero/archivo/' 12
  cellrev sed -i 's/fichero/archivo/g' 12 13 14
  cellrev sed -i 's|fichero|archivo|gi' --prefix Sheet1!

Flags after the expression: g replaces every occurrence, i ignores case.
The search text is literal. Cells without a match are left alone.
The -i flag (in-place) is required, matching sed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: e.runSed,
	}
	c.Flags().BoolP(extension.FlagInPlace, "i", false, "Edit in place (required)")
	c.Flags().StringP(extension.FlagPrefix, "p", "", "Every cell with this id prefix")
	return c
}

func (e *Extension) runSed(c *cobra.Command, args []string) error {
	ctx := c.Context()
	inPlace, _ := c.Flags().GetBool(extension.FlagInPlace)
	if !inPlace {
		return cmd.PrintJSONError(errors.New("the -i flag is required (sed only supports in-place editing)"))
	}

	expr, ids := args[0], args[1:]
	prefix, _ := c.Flags().GetString(extension.FlagPrefix)
	switch {
	case prefix != "" && len(ids) > 0:
		return cmd.PrintJSONError(errors.New("give cell ids or --prefix, not both"))
	case prefix != "":
		var err error
		if ids, err = e.svc.IDs(ctx, prefix); err != nil {
			return cmd.PrintJSONError(err)
		}
	case len(ids) == 0:
		return cmd.PrintJSONError(errors.New("give cell ids or --prefix"))
	}

	w := cmd.Out()
	if cmd.JSON() {
		w = io.Discard
	}
	result, err := sed.Run(ctx, w, e.svc, ids, expr, sed.Options{
		Author:  cmd.Author(),
		Message: cmd.Message(),
	})

	log.Event("edit:sed", "write").
		Author(cmd.Author()).
		Detail("expr", expr).
		Detail("prefix", prefix).
		Detail("edited", len(result.Edited)).
		Detail("failed", len(result.Failed)).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("sed: %w", err))
	}
	if !cmd.JSON() {
		for id, msg := range result.Failed {
			fmt.Fprintf(c.ErrOrStderr(), "%s: %s\n", id, msg)
		}
	}
	if err := cmd.PrintJSON(result); err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		c.SilenceUsage = true
		return fmt.Errorf("sed: %d of %d failed", len(result.Failed), len(ids))
	}
	return nil
}

// --- MCP tools ---

// MCPTools exposes edit and sed to LLM clients, which otherwise have to
// resend a whole cell to change one word.
func (e *Extension) MCPTools() []extension.MCPTool {
	return []extension.MCPTool{
		{
			Tool: mcp.NewTool("cellrev_edit",
				mcp.WithDescription("Replace the first occurrence of text in a cell's secondary text and store it as a new version"),
				mcp.WithString("id", mcp.Required(), mcp.Description("Cell id")),
				mcp.WithString("old", mcp.Required(), mcp.Description("Text to find")),
				mcp.WithString("new", mcp.Required(), mcp.Description("Replacement text")),
				mcp.WithBoolean("ignore_case", mcp.Description("Case-insensitive matching")),
				mcp.WithString("author", mcp.Required(), mcp.Description("Author attribution")),
				mcp.WithString("message", mcp.Description("Version message")),
			),
			Handler: editTool,
		},
		{
			Tool: mcp.NewTool("cellrev_sed",
				mcp.WithDescription("Apply a sed-style substitution (s/old/new/ with optional g and i flags) to the secondary text of several cells"),
				mcp.WithString("expr", mcp.Required(), mcp.Description("Substitution, e.g. s/fichero/archivo/g")),
				mcp.WithArray("ids", mcp.Description("Cell ids"), mcp.WithStringItems()),
				mcp.WithString("prefix", mcp.Description("Every cell with this id prefix, instead of ids")),
				mcp.WithString("author", mcp.Required(), mcp.Description("Author attribution")),
			),
			Handler: sedTool,
		},
	}
}

func editTool(ctx context.Context, extCtx extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	old, err := req.RequireString("old")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repl, err := req.RequireString("new")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := edit.Run(ctx, io.Discard, extCtx.Service(), id, edit.Options{
		Old:             old,
		New:             repl,
		CaseInsensitive: req.GetBool("ignore_case", false),
		Author:          author,
		Message:         req.GetString("message", ""),
	})

	log.Event("mcp:cellrev_edit", "write").
		Author(author).
		Cell(id).
		ResultVersion(res.Version).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return extension.JSONResult(res)
}

func sedTool(ctx context.Context, extCtx extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := req.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	svc := extCtx.Service()
	ids := req.GetStringSlice("ids", nil)
	prefix := req.GetString("prefix", "")
	switch {
	case prefix != "" && len(ids) > 0:
		return mcp.NewToolResultError("give ids or prefix, not both"), nil
	case prefix != "":
		if ids, err = svc.IDs(ctx, prefix); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	case len(ids) == 0:
		return mcp.NewToolResultError("ids or prefix is required"), nil
	}

	res, err := sed.Run(ctx, io.Discard, svc, ids, expr, sed.Options{Author: author})

	log.Event("mcp:cellrev_sed", "write").
		Author(author).
		Detail("expr", expr).
		Detail("edited", len(res.Edited)).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return extension.JSONResult(res)
}
