// ls.go implements "cellrev ls". Filters map one to one onto
// store.ListOptions; -l adds approvals, comments and a text preview.

package cell

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/format"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/store"
	"github.com/jpl-au/cellrev/internal/validate"
)

// longColumns is the width of everything in a long listing except the
// text column, assuming short ids and authors.
const longColumns = 90

type lsEntry struct {
	store.CellJSON
	Approvals *store.Approvals `json:"approvals,omitempty"`
	Comment   string           `json:"comment,omitempty"`
}

func (e *Extension) newLsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "ls [prefix]",
		Short: "List cells",
		Long: `List cells in row order, optionally filtered by id prefix.

  cellrev ls -l                          # with approvals and text
  cellrev ls --status different --below 80
  cellrev ls --approval none             # not yet reviewed
  cellrev ls --sort -ratio --limit 20`,
		Args: cobra.MaximumNArgs(1),
		RunE: e.runLs,
	}
	c.Flags().BoolP(extension.FlagAll, "A", false, "Include deleted cells")
	c.Flags().BoolP(extension.FlagDeleted, "D", false, "Show only deleted cells")
	c.Flags().BoolP(extension.FlagLong, "l", false, "Long format with approvals and text")
	c.Flags().Bool(extension.FlagIDs, false, "Print ids only")
	c.Flags().StringP(extension.FlagQuery, "q", "", "Only cells whose text contains this")
	c.Flags().String(extension.FlagStatus, "", "same or different")
	c.Flags().String(extension.FlagApproval, "", "Approval marker: affirmed, caution, rejected or none")
	c.Flags().String(extension.FlagColumn, "", "Column for --approval (default secondary)")
	c.Flags().Float64(extension.FlagMin, 0, "Ratio at least")
	c.Flags().Float64(extension.FlagMax, 0, "Ratio at most")
	c.Flags().Float64(extension.FlagBelow, 0, "Ratio strictly below")
	c.Flags().Float64(extension.FlagAbove, 0, "Ratio strictly above")
	c.Flags().StringP(extension.FlagSort, "s", "", "Sort by: row, id, ratio, -ratio")
	c.Flags().IntP(extension.FlagLimit, "n", 0, "Maximum cells to list")
	c.Flags().Int(extension.FlagOffset, 0, "Cells to skip")
	c.Flags().Int(extension.FlagWidth, 0, "Text column width for -l")
	c.MarkFlagsMutuallyExclusive(extension.FlagAll, extension.FlagDeleted)
	c.MarkFlagsMutuallyExclusive(extension.FlagLong, extension.FlagIDs)
	return c
}

// ratioFlag returns the flag's value if it was given.
func ratioFlag(c *cobra.Command, name string) *float64 {
	if !c.Flags().Changed(name) {
		return nil
	}
	v, _ := c.Flags().GetFloat64(name)
	return &v
}

func (e *Extension) listOptions(c *cobra.Command, args []string) (store.ListOptions, error) {
	var opts store.ListOptions
	if len(args) > 0 {
		opts.Prefix = args[0]
	}
	opts.IncludeDeleted, _ = c.Flags().GetBool(extension.FlagAll)
	opts.DeletedOnly, _ = c.Flags().GetBool(extension.FlagDeleted)
	opts.Query, _ = c.Flags().GetString(extension.FlagQuery)
	opts.Status, _ = c.Flags().GetString(extension.FlagStatus)
	opts.Sort, _ = c.Flags().GetString(extension.FlagSort)
	opts.Limit, _ = c.Flags().GetInt(extension.FlagLimit)
	opts.Offset, _ = c.Flags().GetInt(extension.FlagOffset)
	opts.MinRatio = ratioFlag(c, extension.FlagMin)
	opts.MaxRatio = ratioFlag(c, extension.FlagMax)
	opts.Below = ratioFlag(c, extension.FlagBelow)
	opts.Above = ratioFlag(c, extension.FlagAbove)

	if a, _ := c.Flags().GetString(extension.FlagApproval); a != "" {
		v, err := validate.Approval(a)
		if err != nil {
			return opts, err
		}
		opts.Approval = v
	}
	if col, _ := c.Flags().GetString(extension.FlagColumn); col != "" {
		v, err := validate.Column(col)
		if err != nil {
			return opts, err
		}
		opts.ApprovalColumn = v
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return opts, fmt.Errorf("--limit and --offset must be >= 0")
	}
	return opts, nil
}

func (e *Extension) runLs(c *cobra.Command, args []string) error {
	ctx := c.Context()
	opts, err := e.listOptions(c, args)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	long, _ := c.Flags().GetBool(extension.FlagLong)
	idsOnly, _ := c.Flags().GetBool(extension.FlagIDs)

	list, err := e.svc.List(ctx, opts)

	log.Event("cell:ls", "list").
		Author(cmd.Author()).
		Detail("prefix", opts.Prefix).
		Detail("count", len(list)).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("ls %q: %w", opts.Prefix, err))
	}

	if !long {
		if cmd.JSON() {
			out := make([]store.CellJSON, len(list))
			for i := range list {
				out[i] = list[i].ToJSON(false)
			}
			return cmd.PrintJSON(out)
		}
		if idsOnly {
			return format.IDs(cmd.Out(), list)
		}
		return format.List(cmd.Out(), list)
	}

	annotated := make([]format.Annotated, len(list))
	for i := range list {
		a := format.Annotated{Cell: list[i]}
		if a.Approvals, err = e.svc.Approvals(ctx, list[i].CellID); err != nil {
			return cmd.PrintJSONError(fmt.Errorf("approvals %q: %w", list[i].CellID, err))
		}
		if a.Comment, err = e.svc.Comment(ctx, list[i].CellID); err != nil {
			return cmd.PrintJSONError(fmt.Errorf("comment %q: %w", list[i].CellID, err))
		}
		annotated[i] = a
	}

	if cmd.JSON() {
		out := make([]lsEntry, len(annotated))
		for i := range annotated {
			out[i] = lsEntry{
				CellJSON:  annotated[i].ToJSON(false),
				Approvals: &annotated[i].Approvals,
				Comment:   annotated[i].Comment,
			}
		}
		return cmd.PrintJSON(out)
	}
	return format.Long(cmd.Out(), annotated, textWidth(c))
}

func textWidth(c *cobra.Command) int {
	if w, _ := c.Flags().GetInt(extension.FlagWidth); w > 0 {
		return w
	}
	if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && cols-longColumns >= 20 {
		return cols - longColumns
	}
	return format.DefaultWidth
}
