// diff.go implements "cellrev diff". Three modes: a cell's primary against
// its secondary, two versions of a cell's secondary, or two files.

package cell

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/diff"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/render"
)

var errFileArgs = errors.New("-f/--file requires two arguments: cellrev diff -f <old> <new>")

type diffResult struct {
	Old    string      `json:"old"`
	New    string      `json:"new"`
	Ratio  float64     `json:"ratio"`
	Render render.Cell `json:"render"`
}

func (e *Extension) newDiffCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "diff <id> | -f <old> <new>",
		Short: "Show word differences",
		Long: `Show word differences.

  cellrev diff 12                  # primary against secondary
  cellrev diff 12 -V 1:3           # secondary of version 1 against version 3
  cellrev diff -f old.txt new.txt  # two files, nothing stored`,
		Args: cobra.RangeArgs(1, 2),
		RunE: e.runDiff,
	}
	c.Flags().StringP(extension.FlagVersions, "V", "", "Version range (e.g., 1:3)")
	c.Flags().BoolP(extension.FlagFile, "f", false, "Compare two files")
	c.Flags().Bool(extension.FlagRaw, false, "Output without colour")
	return c
}

func (e *Extension) runDiff(c *cobra.Command, args []string) error {
	ctx := c.Context()
	verRange, _ := c.Flags().GetString(extension.FlagVersions)
	isFile, _ := c.Flags().GetBool(extension.FlagFile)
	raw, _ := c.Flags().GetBool(extension.FlagRaw)

	var (
		oldText, newText   string
		oldLabel, newLabel string
	)
	switch {
	case isFile:
		if len(args) != 2 {
			return cmd.PrintJSONError(errFileArgs)
		}
		a, err := os.ReadFile(args[0])
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("read file %s: %w", args[0], err))
		}
		b, err := os.ReadFile(args[1])
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("read file %s: %w", args[1], err))
		}
		oldText, newText = diff.Normalise(string(a)), diff.Normalise(string(b))
		oldLabel, newLabel = args[0], args[1]

	case verRange != "":
		v1, v2, err := diff.ParseVersionRange(verRange)
		if err != nil {
			return cmd.PrintJSONError(err)
		}
		older, err := e.svc.Version(ctx, args[0], v1)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("diff %q v%d: %w", args[0], v1, err))
		}
		newer, err := e.svc.Version(ctx, args[0], v2)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("diff %q v%d: %w", args[0], v2, err))
		}
		oldText, newText = older.Secondary, newer.Secondary
		oldLabel, newLabel = fmt.Sprintf("v%d", v1), fmt.Sprintf("v%d", v2)

	default:
		if len(args) != 1 {
			return cmd.PrintJSONError(fmt.Errorf("diff takes one cell id unless -f is given"))
		}
		cell, err := e.svc.Get(ctx, args[0], false)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("diff %q: %w", args[0], err))
		}
		oldText, newText = cell.Primary, cell.Secondary
		oldLabel, newLabel = "primary", "secondary"
	}

	sc, err := e.engine.Compute(oldText, newText)

	l := log.Event("cell:diff", "diff").Author(cmd.Author())
	if !isFile {
		l = l.Cell(args[0])
	}
	l.Detail("versions", verRange).Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("diff: %w", err))
	}

	if cmd.JSON() {
		return cmd.PrintJSON(diffResult{
			Old:    oldLabel,
			New:    newLabel,
			Ratio:  sc.Similarity(),
			Render: render.Render(sc),
		})
	}
	fmt.Fprint(cmd.Out(), render.Format(sc, oldLabel, newLabel, !raw && cmd.Colour()))
	return nil
}
