package cell

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/format"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/store"
)

func (e *Extension) newHistoryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "history <id>",
		Short: "Show a cell's versions",
		Long: `Show a cell's versions, newest first.

  cellrev history 12
  cellrev history 12 --diff    # how the secondary text changed`,
		Args: cobra.ExactArgs(1),
		RunE: e.runHistory,
	}
	c.Flags().IntP(extension.FlagLimit, "n", 0, "Maximum versions to show")
	c.Flags().BoolP(extension.FlagAll, "A", false, "Include deleted versions")
	c.Flags().BoolP(extension.FlagDiff, "d", false, "Show diffs between versions")
	return c
}

func (e *Extension) runHistory(c *cobra.Command, args []string) error {
	id := args[0]
	limit, _ := c.Flags().GetInt(extension.FlagLimit)
	all, _ := c.Flags().GetBool(extension.FlagAll)
	showDiff, _ := c.Flags().GetBool(extension.FlagDiff)

	versions, err := e.svc.History(c.Context(), id, limit, all)

	log.Event("cell:history", "history").
		Author(cmd.Author()).
		Cell(id).
		Detail("count", len(versions)).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("history %q: %w", id, err))
	}

	if cmd.JSON() {
		out := make([]store.CellJSON, len(versions))
		for i := range versions {
			out[i] = versions[i].ToJSON(showDiff)
		}
		return cmd.PrintJSON(out)
	}
	if showDiff {
		return format.HistoryDiff(cmd.Out(), e.engine, versions, cmd.Colour())
	}
	return format.History(cmd.Out(), versions)
}
