// Package cells implements service.Service on top of the SQLite store.
//
// Every path that puts text in front of a reviewer goes through the same
// diff engine and renderer, so a preview, a save response and a re-render of
// a stored cell are byte-identical for the same texts.
package cells

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/diff"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/repo"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
)

// DefaultAuthor is recorded when a write names no author.
const DefaultAuthor = "unknown"

// Service implements service.Service.
type Service struct {
	store      *store.SQLiteStore
	engine     *diff.Engine
	dir        string
	maxID      int
	maxContent int64
	extCtx     extension.Context
}

var _ service.Service = (*Service)(nil)

// New opens the named review set of the nearest workspace. db "" is the
// default set. Returns repo.ErrNotInitialised if none is found.
func New(db string) (*Service, error) {
	return NewIn("", db)
}

// NewIn opens the named review set of the workspace rooted at dir, or of
// the nearest workspace when dir is empty.
func NewIn(dir, db string) (*Service, error) {
	path, err := repo.Locate(dir, db)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return Open(path, cfg)
}

// Open opens the database at path with the given configuration.
func Open(path string, cfg *config.Config) (*Service, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := st.Init(); err != nil {
		st.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	s := &Service{store: st, dir: filepath.Dir(path)}
	s.apply(cfg)
	return s, nil
}

// Init creates a workspace. See repo.Init.
func Init(force bool, db string, local bool, dir string) error {
	return repo.Init(force, db, local, dir)
}

func (s *Service) apply(cfg *config.Config) {
	s.engine = diff.New(cfg.DiffOptions())
	s.maxID = cfg.MaxID()
	s.maxContent = cfg.MaxContent()
}

// ReloadConfig re-reads configuration so later calls use new diff options
// and limits.
func (s *Service) ReloadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	s.apply(cfg)
	return nil
}

// SetExtensionContext sets the context passed to event handlers.
func (s *Service) SetExtensionContext(ctx extension.Context) {
	s.extCtx = ctx
}

func (s *Service) fire(e extension.Event) {
	extension.Fire(s.extCtx, e)
}

// Close checkpoints the WAL and closes the database connection.
func (s *Service) Close() error {
	if err := s.store.Checkpoint(context.Background()); err != nil {
		log.Event("service:close", "checkpoint").
			Detail("error", err.Error()).
			Write(err)
	}
	return s.store.Close()
}

// Checkpoint flushes the WAL to the main database file.
func (s *Service) Checkpoint(ctx context.Context) error {
	return s.store.Checkpoint(ctx)
}

// DB returns the underlying database connection for extensions.
func (s *Service) DB() *sql.DB {
	return s.store.DB()
}

// Tx runs fn within a database transaction.
func (s *Service) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := s.store.Tx(ctx, fn); err != nil {
		return fmt.Errorf("transaction rolled back: %w", err)
	}
	return nil
}

// Dir returns the .cellrev directory holding the database.
func (s *Service) Dir() string {
	return s.dir
}

// Engine returns the diff engine configured for this service.
func (s *Service) Engine() *diff.Engine {
	return s.engine
}

// ratio rounds a similarity to two decimals for storage.
func ratio(sc diff.Script) float64 {
	return math.Round(sc.Similarity()*100) / 100
}

func authorOr(a string) string {
	if a == "" {
		return DefaultAuthor
	}
	return a
}
