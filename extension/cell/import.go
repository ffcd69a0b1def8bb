// import.go implements "cellrev import". Parsing and chunking live in
// internal/importer; this file maps flags and prints the outcome.

package cell

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/importer"
	"github.com/jpl-au/cellrev/internal/log"
)

func (e *Extension) newImportCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "import <file|dir>",
		Short: "Import cells from YAML or JSON",
		Long: `Import cells from a YAML or JSON file, or every such file in a
directory (by name, recursively).

  cellrev import cells.yaml
  cellrev import exports/ --dry-run
  cellrev import cells.yaml --replace    # new version for existing cells

See 'cellrev guide import' for the file format.`,
		Args: cobra.ExactArgs(1),
		RunE: e.runImport,
	}
	c.Flags().BoolP(extension.FlagDryRun, "n", false, "Show what would be imported")
	c.Flags().Bool(extension.FlagReplace, false, "Store a new version for cells that already exist")
	c.Flags().Bool(extension.FlagIncludeHidden, false, "Include hidden files and directories")
	return c
}

func (e *Extension) runImport(c *cobra.Command, args []string) error {
	src := args[0]
	opts := importer.Options{
		Author: cmd.Author(),
		Msg:    cmd.Message(),
	}
	opts.DryRun, _ = c.Flags().GetBool(extension.FlagDryRun)
	opts.Replace, _ = c.Flags().GetBool(extension.FlagReplace)
	opts.Hidden, _ = c.Flags().GetBool(extension.FlagIncludeHidden)
	if opts.Msg == "" {
		opts.Msg = "Imported from " + src
	}

	w := cmd.Out()
	if cmd.JSON() {
		w = io.Discard
	}

	result, err := importer.Run(c.Context(), w, e.svc, src, opts)

	l := log.Event("cell:import", "import").
		Author(cmd.Author()).
		Detail("source", src).
		Detail("dry_run", opts.DryRun).
		Detail("cells", result.Cells)
	if result.Store != nil {
		l = l.Detail("created", result.Store.Created).
			Detail("replaced", result.Store.Replaced).
			Detail("failed", len(result.Store.Failed))
	}
	l.Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("import %q: %w", src, err))
	}
	return cmd.PrintJSON(result)
}
