// db.go implements "cellrev db". A workspace can hold several review sets,
// one database each (cellrev.db, cellrev-<name>.db). Whether a set is
// committed is decided by .gitignore; db only lists sets and edits that
// file, so it runs without opening the default store.

package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/repo"
	"github.com/jpl-au/cellrev/internal/store"
)

// reviewSet is one line of "cellrev db".
type reviewSet struct {
	repo.DBInfo
	Cells int64 `json:"cells"`
}

func newDBCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "db [name]",
		Short: "List review sets or mark one local or shared",
		Long: `List the review sets in this workspace with their cell counts, or
change whether one is committed.

  cellrev db                    # every set
  cellrev db sheet2             # is cellrev-sheet2.db local or shared?
  cellrev db sheet2 --local     # keep it out of git
  cellrev db --share            # commit the default set
  cellrev db --dir /path        # another workspace

Select a set for other commands with --db <name>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDB,
	}
	c.Flags().BoolP(extension.FlagLocal, "l", false, "Mark the set local (gitignored)")
	c.Flags().BoolP(extension.FlagShare, "s", false, "Mark the set shared (committed)")
	c.MarkFlagsMutuallyExclusive(extension.FlagLocal, extension.FlagShare)
	return c
}

func runDB(c *cobra.Command, args []string) error {
	local, _ := c.Flags().GetBool(extension.FlagLocal)
	share, _ := c.Flags().GetBool(extension.FlagShare)

	// repo takes the .cellrev directory; "" discovers it.
	root := ""
	if d := cmd.Dir(); d != "" {
		root = filepath.Join(d, repo.Dir)
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	var action string
	var err error
	switch {
	case local:
		action = "ignore"
		err = markDB(name, root, true)
	case share:
		action = "unignore"
		err = markDB(name, root, false)
	case name != "":
		action = "status"
		err = printDBStatus(name, root)
	default:
		action = "list"
		err = listDBs(c.Context(), root)
	}

	log.Event("core:db", action).
		Author(cmd.Author()).
		Detail("db", name).
		Detail("dir", cmd.Dir()).
		Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("db %s: %w", action, err))
	}
	return nil
}

func markDB(name, root string, local bool) error {
	mark, state := repo.UnignoreDB, "shared"
	if local {
		mark, state = repo.IgnoreDB, "local"
	}
	if err := mark(name, root); err != nil {
		return err
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"file": repo.DBFileName(name), "status": state})
	}
	fmt.Fprintf(cmd.Out(), "%s marked as %s\n", repo.DBFileName(name), state)
	return nil
}

func printDBStatus(name, root string) error {
	ignored, err := repo.IsIgnored(name, root)
	if err != nil {
		return err
	}
	state := "shared"
	if ignored {
		state = "local"
	}
	if cmd.JSON() {
		return cmd.PrintJSON(map[string]string{"file": repo.DBFileName(name), "status": state})
	}
	fmt.Fprintf(cmd.Out(), "%s: %s\n", repo.DBFileName(name), state)
	return nil
}

func listDBs(ctx context.Context, root string) error {
	dbs, err := repo.ListDBs(root)
	if err != nil {
		return err
	}

	sets := make([]reviewSet, len(dbs))
	for i, db := range dbs {
		sets[i] = reviewSet{DBInfo: db, Cells: -1}
		if n, err := countCells(ctx, db.Path); err == nil {
			sets[i].Cells = n
		}
	}

	if cmd.JSON() {
		return cmd.PrintJSON(sets)
	}
	if len(sets) == 0 {
		fmt.Fprintln(cmd.Out(), "No review sets found")
		return nil
	}
	for _, s := range sets {
		state := "shared"
		if s.Local {
			state = "local"
		}
		cells := "?"
		if s.Cells >= 0 {
			cells = fmt.Sprintf("%d cells", s.Cells)
		}
		fmt.Fprintf(cmd.Out(), "%-24s %-7s %s\n", s.File, state, cells)
	}
	return nil
}

// countCells reports active cells in the set at path. A set that cannot be
// opened is listed without a count rather than failing the listing.
func countCells(ctx context.Context, path string) (int64, error) {
	s, err := store.Open(path)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	return s.Count(ctx, "")
}
