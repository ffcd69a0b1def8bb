// Package all imports all built-in cellrev extensions.
// Import this package to register all built-in commands.
package all

import (
	// Each registers itself via init()
	_ "github.com/jpl-au/cellrev/extension/cell"
	_ "github.com/jpl-au/cellrev/extension/core"
	_ "github.com/jpl-au/cellrev/extension/edit"
	_ "github.com/jpl-au/cellrev/extension/regenerate"
	_ "github.com/jpl-au/cellrev/extension/search"
)
