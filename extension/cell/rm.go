// rm.go implements "cellrev rm" and "cellrev restore". Deletion is soft:
// cells come back with restore until vacuum removes them.

package cell

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/store"
)

var errNoTargets = errors.New("requires cell ids or --prefix")

type rmResult struct {
	Done   []string          `json:"done"`
	Failed map[string]string `json:"failed,omitempty"`
}

func (e *Extension) newRmCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "rm <id>... | --prefix <prefix>",
		Short: "Delete cells",
		Long:  `Soft-delete cells (recoverable via restore).`,
		RunE: func(c *cobra.Command, args []string) error {
			return e.each(c, args, "rm", "delete", false, e.svc.Delete)
		},
	}
	c.Flags().StringP(extension.FlagPrefix, "p", "", "Delete every cell with this id prefix")
	return c
}

func (e *Extension) newRestoreCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "restore <id>... | --prefix <prefix>",
		Short: "Restore deleted cells",
		RunE: func(c *cobra.Command, args []string) error {
			return e.each(c, args, "restore", "restore", true, e.svc.Restore)
		},
	}
	c.Flags().StringP(extension.FlagPrefix, "p", "", "Restore every deleted cell with this id prefix")
	return c
}

// targets returns the ids named on the command line or selected by
// --prefix. Restore selects among deleted cells.
func (e *Extension) targets(ctx context.Context, c *cobra.Command, args []string, deleted bool) ([]string, error) {
	prefix, _ := c.Flags().GetString(extension.FlagPrefix)
	if prefix == "" {
		if len(args) == 0 {
			return nil, errNoTargets
		}
		return args, nil
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("give cell ids or --prefix, not both")
	}
	if !deleted {
		return e.svc.IDs(ctx, prefix)
	}
	list, err := e.svc.List(ctx, store.ListOptions{Prefix: prefix, DeletedOnly: true})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].CellID
	}
	return ids, nil
}

func (e *Extension) each(c *cobra.Command, args []string, name, action string, deleted bool, fn func(context.Context, string) error) error {
	ctx := c.Context()
	ids, err := e.targets(ctx, c, args, deleted)
	if err != nil {
		return cmd.PrintJSONError(err)
	}

	res := rmResult{Done: []string{}}
	for _, id := range ids {
		err := fn(ctx, id)

		log.Event("cell:"+name, action).
			Author(cmd.Author()).
			Cell(id).
			Write(err)

		if err != nil {
			if res.Failed == nil {
				res.Failed = make(map[string]string)
			}
			res.Failed[id] = err.Error()
			continue
		}
		res.Done = append(res.Done, id)
	}

	if !cmd.JSON() {
		verb := "Deleted"
		if deleted {
			verb = "Restored"
		}
		for _, id := range res.Done {
			fmt.Fprintf(cmd.Out(), "%s %s\n", verb, id)
		}
		for _, id := range ids {
			if msg, ok := res.Failed[id]; ok {
				fmt.Fprintf(c.ErrOrStderr(), "%s: %s\n", id, msg)
			}
		}
	}
	if err := cmd.PrintJSON(res); err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		c.SilenceUsage = true
		return fmt.Errorf("%s: %d of %d failed", name, len(res.Failed), len(ids))
	}
	return nil
}
