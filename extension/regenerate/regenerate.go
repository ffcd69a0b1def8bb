// Package regenerate provides the regenerate extension: rewriting secondary
// text with the configured LLM provider. Registers command: regenerate.
package regenerate

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/generate"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/progress"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
)

func init() {
	extension.Register(&Extension{})
}

// Extension implements the regenerate extension.
type Extension struct {
	svc service.Service
	cfg *config.Config
}

var (
	_ extension.Extension     = (*Extension)(nil)
	_ extension.Initializable = (*Extension)(nil)
)

var errNoCells = errors.New("no cells selected")

// Name returns "regenerate".
func (e *Extension) Name() string { return "regenerate" }

// Init connects to the shared service. The provider is built per run so
// commands that never regenerate do not need an API key.
func (e *Extension) Init(ctx extension.Context) error {
	e.svc = ctx.Service()
	e.cfg = ctx.Config()
	return nil
}

// Commands returns the regenerate command.
func (e *Extension) Commands() []*cobra.Command {
	return []*cobra.Command{e.newRegenerateCmd()}
}

// MCPTools returns nil; cellrev_regenerate is built in.
func (e *Extension) MCPTools() []extension.MCPTool {
	return nil
}

type bulkResult struct {
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Results   []*generate.Result `json:"results"`
}

func (e *Extension) newRegenerateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "regenerate [id]...",
		Short: "Rewrite secondary text with the LLM",
		Long: `Generate new secondary text and store it as a new version.

Select cells by id, or by filter when no ids are given:
  cellrev regenerate 12 14
  cellrev regenerate --below 70
  cellrev regenerate --prefix Sheet1! --status different

Choose a prompt:
  cellrev regenerate 12 --variant alt1
  cellrev regenerate 12 --variant custom --prompt-file prompt.md

--dry-run prints the prompt for each cell instead of calling the provider.
See 'cellrev guide regenerate' for provider setup.`,
		RunE: e.runRegenerate,
	}
	c.Flags().String(extension.FlagVariant, string(generate.VariantDefault), "Prompt variant: default, alt1, alt2, custom")
	c.Flags().String(extension.FlagPrompt, "", "Custom prompt template")
	c.Flags().String(extension.FlagPromptFile, "", "Read the custom prompt template from a file")
	c.Flags().StringP(extension.FlagPrefix, "p", "", "Cells with this id prefix")
	c.Flags().String(extension.FlagStatus, "", "Only same or different cells")
	c.Flags().Float64(extension.FlagBelow, 0, "Only cells with ratio below this")
	c.Flags().BoolP(extension.FlagDryRun, "n", false, "Print prompts without generating")
	c.MarkFlagsMutuallyExclusive(extension.FlagPrompt, extension.FlagPromptFile)
	return c
}

func (e *Extension) runRegenerate(c *cobra.Command, args []string) error {
	ctx := c.Context()

	variant, _ := c.Flags().GetString(extension.FlagVariant)
	v, err := generate.ParseVariant(variant)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	custom, err := customPrompt(c)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if custom != "" {
		v = generate.VariantCustom
	}

	ids, err := e.selectIDs(c, args)
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	if len(ids) == 0 {
		return cmd.PrintJSONError(errNoCells)
	}

	dryRun, _ := c.Flags().GetBool(extension.FlagDryRun)
	if dryRun {
		return e.printPrompts(c, ids, v, custom)
	}

	gen, err := generate.Open(ctx, e.svc, e.cfg)
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("regenerate: %w", err))
	}

	req := generate.Request{
		Variant: v,
		Custom:  custom,
		Author:  cmd.Author(),
		Message: cmd.Message(),
	}

	var results []*generate.Result
	if len(ids) == 1 {
		spin := progress.NewSpinner("Regenerating " + ids[0])
		spin.Start()
		results = []*generate.Result{gen.Regenerate(ctx, ids[0], req)}
		spin.Stop()
	} else {
		prog := progress.New("Regenerating", len(ids))
		req.OnResult = func(r *generate.Result) { prog.Step(r.Err) }
		results = gen.RegenerateAll(ctx, ids, req)
		prog.Done()
	}

	out := bulkResult{Results: results}
	for _, r := range results {
		if r.Err != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}

	log.Event("regenerate:regenerate", "generate").
		Author(cmd.Author()).
		Detail("variant", string(v)).
		Detail("provider", gen.Provider().Name()).
		Detail("count", len(ids)).
		Detail("failed", out.Failed).
		Write(nil)

	if cmd.JSON() {
		if err := cmd.PrintJSON(out); err != nil {
			return err
		}
	} else {
		w := cmd.Out()
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(c.ErrOrStderr(), "%s: %v\n", r.ID, r.Err)
				continue
			}
			fmt.Fprintf(w, "Regenerated %s v%d (%.2f%%, %s)\n", r.ID, r.Saved.Version, r.Saved.Ratio, r.Saved.Status())
		}
		if len(results) > 1 {
			fmt.Fprintf(w, "%d succeeded, %d failed\n", out.Succeeded, out.Failed)
		}
	}

	if out.Failed > 0 {
		c.SilenceUsage = true
		if len(results) == 1 {
			return results[0].Err
		}
		return fmt.Errorf("regenerate: %d of %d failed", out.Failed, len(ids))
	}
	return nil
}

func customPrompt(c *cobra.Command) (string, error) {
	if p, _ := c.Flags().GetString(extension.FlagPrompt); p != "" {
		return p, nil
	}
	file, _ := c.Flags().GetString(extension.FlagPromptFile)
	if file == "" {
		return "", nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read prompt file %q: %w", file, err)
	}
	return string(data), nil
}

// selectIDs returns the ids given, or every cell matching the filters.
func (e *Extension) selectIDs(c *cobra.Command, args []string) ([]string, error) {
	prefix, _ := c.Flags().GetString(extension.FlagPrefix)
	status, _ := c.Flags().GetString(extension.FlagStatus)
	filtered := prefix != "" || status != "" || c.Flags().Changed(extension.FlagBelow)

	if len(args) > 0 {
		if filtered {
			return nil, fmt.Errorf("give cell ids or filters, not both")
		}
		return args, nil
	}
	if !filtered {
		return nil, fmt.Errorf("give cell ids, or select with --prefix, --status or --below")
	}

	opts := store.ListOptions{Prefix: prefix, Status: status}
	if c.Flags().Changed(extension.FlagBelow) {
		below, _ := c.Flags().GetFloat64(extension.FlagBelow)
		opts.Below = &below
	}
	list, err := e.svc.List(c.Context(), opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].CellID
	}
	return ids, nil
}

func (e *Extension) printPrompts(c *cobra.Command, ids []string, v generate.Variant, custom string) error {
	ctx := c.Context()
	prompts := make(map[string]string, len(ids))
	var w io.Writer = cmd.Out()
	for i, id := range ids {
		cell, err := e.svc.Get(ctx, id, false)
		if err != nil {
			return cmd.PrintJSONError(fmt.Errorf("regenerate %q: %w", id, err))
		}
		prompt, err := generate.Build(e.cfg, v, custom, cell)
		if err != nil {
			return cmd.PrintJSONError(err)
		}
		prompts[id] = prompt
		if cmd.JSON() {
			continue
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "=== %s ===\n%s\n", id, prompt)
	}
	return cmd.PrintJSON(prompts)
}
