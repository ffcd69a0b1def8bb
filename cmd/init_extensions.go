/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// init_extensions.go opens the store and hands it to extensions.
//
// Extensions register during init() but are not initialised until the first
// command that needs the store runs, so they can declare commands before a
// store exists. One service is shared by all extensions via the Context.

package cmd

import (
	"fmt"
	"sync"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/cells"
	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/log"
)

// noStoreCommands lists commands that bypass automatic store initialisation.
// Built from bootstrap commands plus extension-declared storeless commands.
var noStoreCommands map[string]bool

// authorRequiredCommands lists commands that write cell data.
var authorRequiredCommands = map[string]bool{
	"save":       true,
	"revert":     true,
	"rm":         true,
	"restore":    true,
	"import":     true,
	"approve":    true,
	"edit":       true,
	"sed":        true,
	"regenerate": true,
	"ratios":     true,
	"vacuum":     true,
}

// buildNoStoreCommands creates the set of commands that skip store initialisation.
//
// Bootstrap commands (init, guide, config, llm) must work before "cellrev
// init" has run. Extensions add their own through extension.Storeless.
func buildNoStoreCommands() map[string]bool {
	cmds := map[string]bool{
		// Core bootstrap commands - always storeless
		"init":   true,
		"guide":  true,
		"config": true,
		"llm":    true,
	}

	// Add extension-declared storeless commands
	for _, ext := range extension.All() {
		if s, ok := ext.(extension.Storeless); ok {
			for _, name := range s.NoStoreCommands() {
				cmds[name] = true
			}
		}
	}

	return cmds
}

// Global extension context, created during initialisation.
var (
	extContext extension.Context
	extService *cells.Service
	initOnce   sync.Once
	initErr    error
)

// initExtensions opens the cell service once per process and injects it
// into every Initializable extension.
func initExtensions() error {
	initOnce.Do(func() {
		svc, err := cells.NewIn(Dir(), DB())
		if err != nil {
			initErr = fmt.Errorf("opening database: %w", err)
			return
		}
		extService = svc

		log.SetProject(svc.Dir())

		cfg, err := config.Load()
		if err != nil {
			initErr = err
			return
		}
		extContext = extension.NewContext(svc, svc.DB(), cfg)
		svc.SetExtensionContext(extContext)

		for _, ext := range extension.All() {
			if init, ok := ext.(extension.Initializable); ok {
				if err := init.Init(extContext); err != nil {
					initErr = fmt.Errorf("init extension %s: %w", ext.Name(), err)
					return
				}
			}
		}
	})
	return initErr
}

var extensionsOnce sync.Once

// registerExtensions adds commands from all registered extensions.
// Called once before Execute runs.
func registerExtensions() {
	extensionsOnce.Do(func() {
		for _, ext := range extension.All() {
			for _, cmd := range ext.Commands() {
				rootCmd.AddCommand(cmd)
			}
		}

		// Build noStoreCommands after all extensions are registered
		noStoreCommands = buildNoStoreCommands()
	})
}
