// Package cell provides the cell extension: the commands that read, edit
// and annotate cells. Registers commands: ls, cat, import, export, save, revert,
// diff, history, ratios, approve, comment, rm, restore.
package cell

import (
	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/diff"
	"github.com/jpl-au/cellrev/internal/service"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the cell extension.
type Extension struct {
	svc    service.Service
	cfg    *config.Config
	engine *diff.Engine
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

// Name returns "cell".
func (e *Extension) Name() string { return "cell" }

// Init connects to the shared service. The diff engine is built from the
// same config the service uses so terminal diffs match stored ratios.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	e.cfg = ctx.Config()
	e.engine = diff.New(e.cfg.DiffOptions())
	return nil
}

// Commands returns the cell commands.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{
		e.newLsCmd(),
		e.newCatCmd(),
		e.newImportCmd(),
		e.newExportCmd(),
		e.newSaveCmd(),
		e.newRevertCmd(),
		e.newDiffCmd(),
		e.newHistoryCmd(),
		e.newRatiosCmd(),
		e.newApproveCmd(),
		e.newCommentCmd(),
		e.newRmCmd(),
		e.newRestoreCmd(),
	}
}
