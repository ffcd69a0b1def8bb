// version.go implements the version command.

package core

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/internal/version"
)

func newVersionCmd() *cobra.Command {
	var short bool
	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, git commit, Go version, and platform.`,
		Run: func(_ *cobra.Command, _ []string) {
			info := version.Get()
			switch {
			case cmd.JSON():
				_ = cmd.PrintJSON(info)
			case short:
				fmt.Fprintln(cmd.Out(), version.Short())
			default:
				fmt.Fprint(cmd.Out(), info.String())
			}
		},
	}
	c.Flags().BoolVar(&short, "short", false, "Print only the version tag")
	return c
}
