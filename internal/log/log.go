// Package log provides centralised audit logging for cellrev operations.
// Logs are stored in ~/.cellrev/log/cellrev-log.db and track CLI commands,
// MCP tool calls and web requests across projects.
//
// # Fluent API
//
//	log.Event("cell:save", "write").
//		Author(cmd.Author()).
//		Cell(id).
//		ResultVersion(c.Version).
//		Write(err)
//
//	log.Event("generate:regenerate", "generate").
//		Author(cmd.Author()).
//		Detail("variant", v).
//		Detail("count", len(ids)).
//		Write(err)
//
// The source follows "{extension}:{command}" for CLI commands, "mcp:{tool}"
// for MCP tools and "web:{route}" for HTTP handlers.
package log

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	global *Logger
	mu     sync.Mutex
)

// Entry represents a single log entry.
type Entry struct {
	Source  string // e.g., "cell:save", "mcp:cellrev_read"
	Author  string
	Action  string // read, write, approve, generate, ...
	Cell    string // cell id requested
	Version int    // version requested

	ResultVersion int // version created or read

	Start int64 // unix millis when Event() was called
	End   int64 // unix millis when Write() was called

	Success bool
	Error   string
	Detail  map[string]any
}

// Duration is the time between Event and Write.
func (e Entry) Duration() time.Duration {
	return time.Duration(e.End-e.Start) * time.Millisecond
}

// Builder constructs a log entry. Create with [Event], chain setters, then
// call [Builder.Write].
type Builder struct {
	entry Entry
}

// Event starts a log entry for an operation.
func Event(source, action string) *Builder {
	return &Builder{
		entry: Entry{
			Source: source,
			Action: action,
			Start:  time.Now().UnixMilli(),
		},
	}
}

// Author sets who performed the operation. CLI commands pass cmd.Author();
// MCP tools use "mcp" and web handlers "web".
func (b *Builder) Author(author string) *Builder {
	b.entry.Author = author
	return b
}

// Cell sets the cell this operation affects.
func (b *Builder) Cell(id string) *Builder {
	b.entry.Cell = id
	return b
}

// Version sets the version the caller asked for.
func (b *Builder) Version(version int) *Builder {
	b.entry.Version = version
	return b
}

// ResultVersion sets the version created or read.
func (b *Builder) ResultVersion(version int) *Builder {
	b.entry.ResultVersion = version
	return b
}

// Detail adds a key-value pair to the entry.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write records the entry, deriving success from err.
//
//	c, err := svc.Get(ctx, id)
//	log.Event("cell:cat", "read").Cell(id).Write(err)
//	if err != nil {
//		return err
//	}
func (b *Builder) Write(err error) {
	b.entry.End = time.Now().UnixMilli()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Error = err.Error()
	}
	Log(b.entry)
}

// Open initialises the global logger. Safe to call multiple times.
// Callers may ignore the error; logging is best-effort.
func Open() error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}

	p := dbPath()
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", p+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	global = &Logger{db: db}
	return nil
}

// SetProject sets the project identifier for subsequent entries.
// dir should be the absolute path to the .cellrev directory.
func SetProject(dir string) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.project = hash(dir)
	}
}

// Log writes an entry. No-op if the logger is not open.
func Log(e Entry) {
	mu.Lock()
	l := global
	mu.Unlock()

	if l == nil {
		return
	}
	l.log(e)
}

// Recent returns up to limit entries for the current project, newest first.
func Recent(limit int) ([]Entry, error) {
	mu.Lock()
	l := global
	mu.Unlock()

	if l == nil {
		return nil, nil
	}
	return l.recent(limit)
}

// Close closes the global logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}
