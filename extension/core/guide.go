// guide.go implements "cellrev guide" and "cellrev llm". Guides are
// embedded in the binary. Terminals get glamour rendering; pipes get raw
// markdown so the output can be fed to an LLM.

package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/guide"
)

func newGuideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guide [topic]",
		Short: "Show the cellrev usage guide",
		Long: `Outputs the cellrev guide for LLMs and humans.

  cellrev guide              # main guide
  cellrev guide regenerate   # one topic`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			names, _ := guide.List()
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(_ *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			content, err := guide.Get(name)
			if err != nil {
				available, listErr := guide.List()
				if listErr != nil {
					return listErr
				}
				return cmd.PrintJSONError(fmt.Errorf("guide %q not found. Available: %s", name, strings.Join(available, ", ")))
			}
			return printGuide(name, content)
		},
	}
}

func newLlmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "llm",
		Short: "Getting started guide for LLMs",
		Long:  `Quick reference for LLMs reviewing cells with cellrev.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			content, err := guide.Get("llm")
			if err != nil {
				return cmd.PrintJSONError(err)
			}
			return printGuide("llm", content)
		},
	}
}

func printGuide(name, content string) error {
	if cmd.JSON() {
		if name == "" {
			name = "guide"
		}
		return cmd.PrintJSON(map[string]string{"topic": name, "content": content})
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		rendered, err := glamour.Render(content, "dark")
		if err == nil {
			fmt.Fprint(cmd.Out(), rendered)
			return nil
		}
	}
	fmt.Fprint(cmd.Out(), content)
	return nil
}
