// export.go implements "cellrev export", the inverse of import.

package cell

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/exporter"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/validate"
)

func (e *Extension) newExportCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "export <file|->",
		Short: "Export cells to YAML or JSON",
		Long: `Export cells with their ratios, approvals and comments. The file can
be read back with 'cellrev import'. A .json name selects JSON; "-" writes
to stdout.

  cellrev export review.yaml
  cellrev export - --status different --approval none
  cellrev export sheet1.json --prefix Sheet1! --force`,
		Args: cobra.ExactArgs(1),
		RunE: e.runExport,
	}
	c.Flags().StringP(extension.FlagPrefix, "p", "", "Only cells whose id starts with this")
	c.Flags().String(extension.FlagStatus, "", "same or different")
	c.Flags().String(extension.FlagApproval, "", "Secondary approval marker: affirmed, caution, rejected or none")
	return c
}

func (e *Extension) runExport(c *cobra.Command, args []string) error {
	dst := args[0]
	opts := exporter.Options{
		Force: cmd.Force(),
		JSON:  cmd.JSON(),
	}
	opts.Prefix, _ = c.Flags().GetString(extension.FlagPrefix)
	opts.Status, _ = c.Flags().GetString(extension.FlagStatus)
	if a, _ := c.Flags().GetString(extension.FlagApproval); a != "" {
		v, err := validate.Approval(a)
		if err != nil {
			return cmd.PrintJSONError(err)
		}
		opts.Approval = v
	}

	// The document itself is the output when writing to stdout.
	w := cmd.Out()
	if cmd.JSON() && dst != exporter.Stdout {
		w = io.Discard
	}

	result, err := exporter.Run(c.Context(), w, e.svc, dst, opts)

	log.Event("cell:export", "export").
		Author(cmd.Author()).
		Detail("destination", dst).
		Detail("prefix", opts.Prefix).
		Detail("exported", result.Exported).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("export %q: %w", dst, err))
	}
	if dst == exporter.Stdout {
		return nil
	}
	return cmd.PrintJSON(result)
}
