// approve.go implements "cellrev approve" and "cellrev comment", the
// annotations that live beside a cell's versions rather than in them.

package cell

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/validate"
)

var errApproveArgs = errors.New("approve needs a status (affirmed, caution, rejected or none) or --reset")

func (e *Extension) newApproveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "approve <id> [status]",
		Short: "Set a cell's approval marker",
		Long: `Mark a column of a cell affirmed, caution or rejected.

  cellrev approve 12 affirmed                # secondary column
  cellrev approve 12 red --column primary    # green, yellow and red work too
  cellrev approve 12 none                    # clear one marker
  cellrev approve 12 --reset                 # clear both`,
		Args: cobra.RangeArgs(1, 2),
		RunE: e.runApprove,
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 1 {
				return []string{
					validate.ApprovalAffirmed, validate.ApprovalCaution,
					validate.ApprovalRejected, validate.ApprovalNone,
				}, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}
	c.Flags().StringP(extension.FlagColumn, "c", validate.ColumnSecondary, "primary or secondary")
	c.Flags().Bool(extension.FlagReset, false, "Clear both markers")
	return c
}

func (e *Extension) runApprove(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id := args[0]
	reset, _ := c.Flags().GetBool(extension.FlagReset)
	column, _ := c.Flags().GetString(extension.FlagColumn)

	var err error
	switch {
	case reset && len(args) == 1:
		err = e.svc.ResetApproval(ctx, id, cmd.Author())
		log.Event("cell:approve", "reset").
			Author(cmd.Author()).
			Cell(id).
			Write(err)
	case !reset && len(args) == 2:
		err = e.svc.Approve(ctx, id, column, args[1], cmd.Author())
		log.Event("cell:approve", "approve").
			Author(cmd.Author()).
			Cell(id).
			Detail("column", column).
			Detail("status", args[1]).
			Write(err)
	default:
		return cmd.PrintJSONError(errApproveArgs)
	}
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("approve %q: %w", id, err))
	}

	a, err := e.svc.Approvals(ctx, id)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]any{"id": id, "approvals": a})
	}
	fmt.Fprintf(cmd.Out(), "%s  primary: %s  secondary: %s\n", id, orNone(a.Primary), orNone(a.Secondary))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return validate.ApprovalNone
	}
	return s
}

func (e *Extension) newCommentCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "comment <id> [text]",
		Short: "Read or write a cell's comment",
		Long: `Print a cell's comment, or replace it.

  cellrev comment 12
  cellrev comment 12 "Check the idiom"
  cellrev comment 12 --clear`,
		Args: cobra.RangeArgs(1, 2),
		RunE: e.runComment,
	}
	c.Flags().Bool(extension.FlagClear, false, "Remove the comment")
	return c
}

func (e *Extension) runComment(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id := args[0]
	remove, _ := c.Flags().GetBool(extension.FlagClear)

	if len(args) == 2 || remove {
		text := ""
		if len(args) == 2 {
			if remove {
				return cmd.PrintJSONError(fmt.Errorf("--clear takes no text"))
			}
			text = args[1]
		}
		if cmd.Author() == "" {
			return cmd.PrintJSONError(fmt.Errorf("author required to write a comment (use -a or set author.name)"))
		}
		err := e.svc.SaveComment(ctx, id, text, cmd.Author())

		log.Event("cell:comment", "write").
			Author(cmd.Author()).
			Cell(id).
			Detail("clear", text == "").
			Write(err)

		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("comment %q: %w", id, err))
		}
	}

	text, err := e.svc.Comment(ctx, id)

	log.Event("cell:comment", "read").
		Author(cmd.Author()).
		Cell(id).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("comment %q: %w", id, err))
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"id": id, "comment": text})
	}
	if text != "" {
		fmt.Fprintln(cmd.Out(), text)
	}
	return nil
}
