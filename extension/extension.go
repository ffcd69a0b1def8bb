// Package extension is how cellrev's commands are put together. Each
// extension contributes cobra commands and MCP tools, registers itself from
// an init function, and is handed the open cell service before any of its
// commands run.
package extension

import (
	"github.com/spf13/cobra"
)

// Extension is one group of commands and the MCP tools that mirror them.
type Extension interface {
	// Name is unique across the registry.
	Name() string
	Commands() []*cobra.Command
	MCPTools() []MCPTool
}

// Initializable extensions receive the Context once the store is open.
// Commands of extensions that do not implement it must not touch the store.
type Initializable interface {
	Extension
	Init(ctx Context) error
}

// Storeless extensions name commands that run without opening the store:
// bootstrap commands, and servers (web, serve) that open and close their
// own service.
type Storeless interface {
	NoStoreCommands() []string
}
