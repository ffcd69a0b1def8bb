package core

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/internal/log"
)

func (e *Extension) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			st, err := e.svc.Stats(c.Context())

			log.Event("core:stats", "read").
				Author(cmd.Author()).
				Write(err)

			if err != nil {
				return cmd.PrintJSONError(fmt.Errorf("stats: %w", err))
			}
			if cmd.JSON() {
				return cmd.PrintJSON(st)
			}

			w := cmd.Out()
			fmt.Fprintf(w, "Cells:      %d (%d deleted)\n", st.Cells, st.Deleted)
			fmt.Fprintf(w, "Versions:   %d\n", st.TotalVersions)
			fmt.Fprintf(w, "Same:       %d\n", st.Same)
			fmt.Fprintf(w, "Different:  %d\n", st.Different)
			fmt.Fprintf(w, "Mean ratio: %.2f\n", st.MeanRatio)
			fmt.Fprintf(w, "Approvals:  %d affirmed, %d caution, %d rejected\n", st.Affirmed, st.Caution, st.Rejected)
			fmt.Fprintf(w, "Comments:   %d\n", st.Comments)
			fmt.Fprintf(w, "Authors:    %d\n", st.Authors)
			if st.OldestCell != nil && st.NewestCell != nil {
				fmt.Fprintf(w, "Span:       %s to %s\n",
					time.Unix(*st.OldestCell, 0).Format("2006-01-02"),
					time.Unix(*st.NewestCell, 0).Format("2006-01-02"))
			}
			return nil
		},
	}
}
