// init.go implements "cellrev init". Init runs before a store exists and
// does not create config; that is "cellrev config".

package core

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/cells"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/repo"
)

var errLocalDir = errors.New("cannot use --local with --dir: --local edits this project's .gitignore but --dir creates the store elsewhere")

func newInitCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "init",
		Short: "Initialise a new cellrev store",
		Long: `Creates .cellrev/cellrev.db in the current directory.

Use --db for additional review sets, one per workbook or sheet:
  cellrev init --db sheet2    # creates .cellrev/cellrev-sheet2.db

Use --dir to create it elsewhere:
  cellrev init --dir /path/to/project

Use --local to keep the database out of git:
  cellrev init --db scratch --local`,
		RunE: runInit,
	}
	c.Flags().BoolP(extension.FlagLocal, "l", false, "Mark database as local (gitignored)")
	return c
}

func runInit(c *cobra.Command, _ []string) error {
	local, _ := c.Flags().GetBool(extension.FlagLocal)
	db, dir := cmd.DB(), cmd.Dir()

	if local && dir != "" {
		return cmd.PrintJSONError(errLocalDir)
	}

	err := cells.Init(cmd.Force(), db, local, dir)

	log.Event("core:init", "init").
		Author(cmd.Author()).
		Detail("db", db).
		Detail("dir", dir).
		Detail("local", local).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("init: %w", err))
	}

	loc := filepath.Join(dir, repo.Dir, repo.DBFileName(db))
	if !cmd.JSON() {
		fmt.Fprintf(cmd.Out(), "Initialised cellrev store in %s\n", loc)
	}
	return cmd.PrintJSON(map[string]any{"path": loc, "local": local})
}
