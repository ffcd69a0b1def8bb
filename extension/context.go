package extension

import (
	"database/sql"

	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/service"
)

// Context is what an extension may reach once the store is open: the cell
// service, the raw database for extension-owned tables, and the loaded
// config. The CLI, the web server and the MCP server each build one over
// their own service.
type Context interface {
	Service() service.Service
	// DB is for tables an extension creates itself; the cell tables are
	// only written through Service.
	DB() *sql.DB
	// Config may be nil in tests.
	Config() *config.Config
}

type extContext struct {
	svc service.Service
	db  *sql.DB
	cfg *config.Config
}

// NewContext returns a Context over svc. Any argument may be nil when the
// caller has no store yet.
func NewContext(svc service.Service, db *sql.DB, cfg *config.Config) Context {
	return extContext{svc: svc, db: db, cfg: cfg}
}

func (c extContext) Service() service.Service { return c.svc }
func (c extContext) DB() *sql.DB              { return c.db }
func (c extContext) Config() *config.Config   { return c.cfg }
