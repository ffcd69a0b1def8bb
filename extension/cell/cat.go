// cat.go implements "cellrev cat": a cell's texts with the diff marked.
// Terminals get ANSI colour; pipes and --raw get plain markers.

package cell

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/format"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/render"
	"github.com/jpl-au/cellrev/internal/store"
)

// catView is the JSON shape of one cell.
type catView struct {
	store.CellJSON
	Diff      render.Cell      `json:"diff"`
	Approvals *store.Approvals `json:"approvals,omitempty"`
	Comment   string           `json:"comment,omitempty"`
}

func (e *Extension) newCatCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "cat <id>...",
		Short: "Show cells",
		Long: `Print cells with their word diff.

  cellrev cat 12
  cellrev cat 12 -v 2          # an earlier version
  cellrev cat 12 --raw         # secondary text only`,
		Args: cobra.MinimumNArgs(1),
		RunE: e.runCat,
	}
	c.Flags().IntP(extension.FlagVersion, "v", 0, "Specific version")
	c.Flags().BoolP(extension.FlagDeleted, "D", false, "Allow reading deleted cells")
	c.Flags().Bool(extension.FlagRaw, false, "Print the secondary text only")
	return c
}

func (e *Extension) runCat(c *cobra.Command, args []string) error {
	ctx := c.Context()
	version, _ := c.Flags().GetInt(extension.FlagVersion)
	deleted, _ := c.Flags().GetBool(extension.FlagDeleted)
	raw, _ := c.Flags().GetBool(extension.FlagRaw)

	if version < 0 {
		return cmd.PrintJSONError(fmt.Errorf("version must be >= 1, got %d", version))
	}

	var views []catView
	for i, id := range args {
		cell, err := e.load(ctx, id, version, deleted)

		log.Event("cell:cat", "read").
			Author(cmd.Author()).
			Cell(id).
			Version(version).
			Write(err)

		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("cat %q: %w", id, err))
		}

		if cmd.JSON() {
			v, err := e.view(ctx, cell, version == 0)
			if err != nil {
				return cmd.PrintJSONError(err)
			}
			views = append(views, v)
			continue
		}

		if raw {
			fmt.Fprintln(cmd.Out(), cell.Secondary)
			continue
		}
		if i > 0 {
			fmt.Fprintln(cmd.Out())
		}
		sc, err := e.engine.Compute(cell.Primary, cell.Secondary)
		if err != nil {
			return fmt.Errorf("diff %q: %w", id, err)
		}
		if err := format.Cell(cmd.Out(), cell, sc, cmd.Colour()); err != nil {
			return err
		}
		if version == 0 {
			if comment, _ := e.svc.Comment(ctx, id); comment != "" {
				fmt.Fprintf(cmd.Out(), "# %s\n", comment)
			}
		}
	}

	if len(views) == 1 {
		return cmd.PrintJSON(views[0])
	}
	return cmd.PrintJSON(views)
}

func (e *Extension) load(ctx context.Context, id string, version int, deleted bool) (*store.Cell, error) {
	if version > 0 {
		return e.svc.Version(ctx, id, version)
	}
	return e.svc.Get(ctx, id, deleted)
}

// view renders a cell for JSON output. Annotations belong to the cell, not
// a version, so they are only included for the latest.
func (e *Extension) view(ctx context.Context, cell *store.Cell, latest bool) (catView, error) {
	v := catView{CellJSON: cell.ToJSON(true)}
	var err error
	if v.Diff, err = e.svc.Preview(ctx, cell.Primary, cell.Secondary); err != nil {
		return v, err
	}
	if !latest {
		return v, nil
	}
	a, err := e.svc.Approvals(ctx, cell.CellID)
	if err != nil {
		return v, err
	}
	v.Approvals = &a
	v.Comment, err = e.svc.Comment(ctx, cell.CellID)
	return v, err
}
