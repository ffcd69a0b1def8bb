// Package mcp implements the Model Context Protocol server, exposing cellrev
// operations to LLMs. An assistant can list and read cells, preview a
// correction, save it, annotate cells and ask for a regeneration.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/cells"
	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/generate"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/repo"
	"github.com/jpl-au/cellrev/internal/service"
)

// Version is advertised to clients for capability negotiation.
const Version = "1.0.0"

// Author is recorded on writes when the caller names nobody.
const Author = "mcp"

// ErrNotInitialised is returned by tools when the store has not been initialised.
// The LLM should call cellrev_init to create a store before using other tools.
const ErrNotInitialised = "store not initialised - call cellrev_init first"

// Serve starts the MCP server over stdio.
//
// The server starts even if no store exists so that an LLM can call
// cellrev_init instead of failing with an opaque error.
func Serve(db string) error {
	// stdout is reserved for MCP JSON-RPC messages
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	h := &handlers{db: db, cfg: cfg}
	svc, err := cells.New(db)
	if err != nil && !errors.Is(err, repo.ErrNotInitialised) {
		slog.Error("failed to open store", "error", err)
		return err
	}
	if err == nil {
		svc.SetExtensionContext(extension.NewContext(svc, svc.DB(), cfg))
		log.SetProject(svc.Dir())
		h.attach(context.Background(), svc)
		defer svc.Close()
	} else {
		slog.Info("cellrev not initialised, starting in uninitialised mode - call cellrev_init to create store")
	}

	s, err := newServer(h)
	if err != nil {
		return err
	}
	slog.Info("cellrev MCP server ready", "version", Version, "transport", "stdio")

	err = server.ServeStdio(s)
	if errors.Is(err, context.Canceled) {
		slog.Info("server stopped")
		return nil
	}
	return err
}

// New returns a server over an open service. gen may be nil, in which case
// cellrev_regenerate reports that regeneration is disabled.
func New(svc service.Service, gen *generate.Generator, cfg *config.Config) (*server.MCPServer, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	h := &handlers{cfg: cfg, svc: svc, gen: gen}
	return newServer(h)
}

func newServer(h *handlers) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		"cellrev",
		Version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)
	registerResources(s, h)
	registerTools(s, h)
	if err := registerExtensionTools(s, h); err != nil {
		return nil, err
	}
	return s, nil
}

// handlers provides MCP request handlers with access to the cell service.
// svc is nil until a store exists.
type handlers struct {
	db  string
	cfg *config.Config
	svc service.Service
	gen *generate.Generator
}

// attach makes svc the handlers' service and builds a generator for it
// when a provider is configured.
func (h *handlers) attach(ctx context.Context, svc service.Service) {
	h.svc = svc
	gen, err := generate.Open(ctx, svc, h.cfg)
	if err != nil {
		slog.Info("regeneration disabled", "error", err)
		return
	}
	h.gen = gen
}

// requireInit returns an error result if the store is not initialised.
func (h *handlers) requireInit() *mcp.CallToolResult {
	if h.svc == nil {
		return mcp.NewToolResultError(ErrNotInitialised)
	}
	return nil
}

// registerExtensionTools adds the tools extensions contribute. Their handlers
// get an extension context built from the live service on each call, so
// tools work once cellrev_init has opened a store.
func registerExtensionTools(s *server.MCPServer, h *handlers) error {
	tools, err := extension.Tools()
	if err != nil {
		return err
	}
	for _, t := range tools {
		s.AddTool(t.Tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if res := h.requireInit(); res != nil {
				return res, nil
			}
			return t.Handler(ctx, extension.NewContext(h.svc, h.svc.DB(), h.cfg), req)
		})
	}
	return nil
}
