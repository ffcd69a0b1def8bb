package cell

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/progress"
)

func (e *Extension) newRatiosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ratios [prefix]",
		Short: "Recompute similarity ratios",
		Long: `Recompute the ratio and status of every cell, or of cells with the
given id prefix. Run it after changing diff.* settings. No versions are
created.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}

			spin := progress.NewSpinner("Recomputing ratios")
			spin.Start()
			n, err := e.svc.RecalculateRatios(c.Context(), prefix)
			spin.Stop()

			log.Event("cell:ratios", "ratios").
				Author(cmd.Author()).
				Detail("prefix", prefix).
				Detail("updated", n).
				Write(err)

			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("ratios: %w", err))
			}
			if !cmd.JSON() {
				fmt.Fprintf(cmd.Out(), "Updated %d cell(s)\n", n)
			}
			return cmd.PrintJSON(map[string]any{"prefix": prefix, "updated": n})
		},
	}
}
