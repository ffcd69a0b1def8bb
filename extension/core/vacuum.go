// vacuum.go implements "cellrev vacuum", the only way to remove deleted
// cells for good. It asks for confirmation unless --force or --dry-run is
// given.

package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/duration"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/vacuum"
)

func (e *Extension) newVacuumCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "vacuum",
		Short: "Permanently delete soft-deleted cells",
		Long: `Permanently delete soft-deleted cells with their versions, approvals
and comments.

This is irreversible. Use --force to skip confirmation.

Ages for --older-than: 12h, 7d, 2w, 3m (30 days), 1y (365 days).`,
		Args: cobra.NoArgs,
		RunE: e.runVacuum,
	}
	c.Flags().String(extension.FlagOlderThan, "", "Only purge deletions older than this age (12h, 7d, 2w, 3m, 1y)")
	c.Flags().StringP(extension.FlagPrefix, "p", "", "Only purge cells with this id prefix")
	c.Flags().BoolP(extension.FlagDryRun, "n", false, "Show what would be deleted")
	return c
}

func (e *Extension) runVacuum(c *cobra.Command, _ []string) error {
	ctx := c.Context()

	var opts vacuum.Options
	opts.Prefix, _ = c.Flags().GetString(extension.FlagPrefix)
	opts.DryRun, _ = c.Flags().GetBool(extension.FlagDryRun)

	if olderThan, _ := c.Flags().GetString(extension.FlagOlderThan); olderThan != "" {
		d, err := duration.Parse(olderThan)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("parse duration %q: %w", olderThan, err))
		}
		opts.OlderThan = &d
	}

	if !opts.DryRun && !cmd.Force() && !cmd.JSON() {
		fmt.Fprint(cmd.Out(), "Permanently delete soft-deleted cells? This cannot be undone. [y/N] ")
		response, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(cmd.Out(), "Cancelled")
			return nil
		}
	}

	w := cmd.Out()
	if cmd.JSON() {
		w = io.Discard
	}
	result, err := vacuum.Run(ctx, w, e.svc, opts)

	log.Event("core:vacuum", "vacuum").
		Author(cmd.Author()).
		Detail("prefix", opts.Prefix).
		Detail("dry_run", opts.DryRun).
		Detail("count", result.Deleted).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("vacuum: %w", err))
	}
	return cmd.PrintJSON(result)
}
