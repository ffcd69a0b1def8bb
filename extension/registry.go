// registry.go holds the global extension registry.
//
// Extensions register from init(), before main runs, so a duplicate name
// is a programming error and panics the way database/sql.Register does.
// Registration order is kept so commands list the same way on every run.

package extension

import (
	"sync"

	"github.com/jpl-au/cellrev/internal/log"
)

var (
	mu       sync.RWMutex
	registry = make(map[string]Extension)
	order    []string
)

// Register adds an extension to the registry. Called from init() functions.
func Register(e Extension) {
	mu.Lock()
	defer mu.Unlock()

	name := e.Name()
	if _, exists := registry[name]; exists {
		panic("extension already registered: " + name)
	}
	registry[name] = e
	order = append(order, name)
}

// All returns a snapshot of registered extensions in registration order.
func All() []Extension {
	mu.RLock()
	defer mu.RUnlock()

	exts := make([]Extension, 0, len(order))
	for _, name := range order {
		exts = append(exts, registry[name])
	}
	return exts
}

// Get returns a specific extension by name, or nil if not found.
func Get(name string) Extension {
	mu.RLock()
	defer mu.RUnlock()
	return registry[name]
}

// Names returns the names of all registered extensions.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, len(order))
	copy(names, order)
	return names
}

// Fire delivers e to every extension implementing EventHandler. Handler
// errors go to the audit log and never reach the caller.
func Fire(ctx Context, e Event) {
	if ctx == nil {
		return
	}
	for _, ext := range All() {
		h, ok := ext.(EventHandler)
		if !ok {
			continue
		}
		if err := h.HandleEvent(ctx, e); err != nil {
			log.Event("event:error", "error").
				Cell(e.EventCell()).
				Detail("ext", ext.Name()).
				Detail("event", string(e.EventType())).
				Write(err)
		}
	}
}
