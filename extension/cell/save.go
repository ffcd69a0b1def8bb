// save.go implements "cellrev save" and "cellrev revert". Text comes from
// the argument, --file or stdin, in that order.

package cell

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/service"
)

type saveResult struct {
	ID string `json:"id"`
	*service.SaveResult
}

func (e *Extension) newSaveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "save <id> [text]",
		Short: "Save corrected secondary text",
		Long: `Store new secondary text for a cell as a new version.

Text comes from the argument, -f, or stdin:
  cellrev save 12 "The cat sat on the mat" -m "fix subject"
  cellrev save 12 -f fixed.txt
  pbpaste | cellrev save 12`,
		Args: cobra.RangeArgs(1, 2),
		RunE: e.runSave,
	}
	c.Flags().StringP(extension.FlagFile, "f", "", "Read text from file")
	return c
}

func (e *Extension) runSave(c *cobra.Command, args []string) error {
	ctx := c.Context()
	id := args[0]

	var text string
	file, _ := c.Flags().GetString(extension.FlagFile)
	switch {
	case len(args) == 2:
		text = args[1]
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("read file %q: %w", file, err))
		}
		text = string(data)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("read stdin: %w", err))
		}
		text = string(data)
	}

	res, err := e.svc.Save(ctx, id, text, cmd.Author(), cmd.Message())

	l := log.Event("cell:save", "write").
		Author(cmd.Author()).
		Cell(id)
	if res != nil {
		l = l.ResultVersion(res.Version).Detail("status", res.Status())
	}
	l.Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("save %q: %w", id, err))
	}
	return printSaved(id, res)
}

func printSaved(id string, res *service.SaveResult) error {
	if cmd.JSON() {
		return cmd.PrintJSON(saveResult{ID: id, SaveResult: res})
	}
	fmt.Fprintf(cmd.Out(), "Saved %s v%d (%.2f%%, %s)\n", id, res.Version, res.Ratio, res.Status())
	return nil
}

func (e *Extension) newRevertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert <id> <version>",
		Short: "Restore an earlier version's secondary text",
		Long: `Write the secondary text of an earlier version as a new version.
History is kept; nothing is overwritten.`,
		Args: cobra.ExactArgs(2),
		RunE: e.runRevert,
	}
}

func (e *Extension) runRevert(c *cobra.Command, args []string) error {
	id := args[0]
	version, err := strconv.Atoi(args[1])
	if err != nil || version < 1 {
		return cmd.PrintJSONError(fmt.Errorf("invalid version %q", args[1]))
	}

	res, err := e.svc.Revert(c.Context(), id, version, cmd.Author())

	l := log.Event("cell:revert", "revert").
		Author(cmd.Author()).
		Cell(id).
		Version(version)
	if res != nil {
		l = l.ResultVersion(res.Version)
	}
	l.Write(err)

	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("revert %q to v%d: %w", id, version, err))
	}
	return printSaved(id, res)
}
