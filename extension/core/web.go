// web.go implements "cellrev web", the HTTP surface. Like serve it owns
// its service: the server runs until interrupted and closes every editing
// session before the store.

package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpl-au/cellrev/cmd"
	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/cells"
	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/generate"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/metrics"
	"github.com/jpl-au/cellrev/internal/web"
)

func newWebCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "web",
		Short: "Start the HTTP server",
		Long: `Serve the cell API and interactive editing sessions over HTTP.

  cellrev web                 # listen on web.addr
  cellrev web --addr :9000

Metrics are exposed at /metrics. See 'cellrev guide web' for endpoints.`,
		Args: cobra.NoArgs,
		RunE: runWeb,
	}
	c.Flags().String(extension.FlagAddr, "", "Listen address (default from web.addr)")
	return c
}

func runWeb(c *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return cmd.PrintJSONError(err)
	}
	addr, _ := c.Flags().GetString(extension.FlagAddr)
	if addr == "" {
		addr = cfg.WebAddr()
	}

	svc, err := cells.NewIn(cmd.Dir(), cmd.DB())
	if err != nil {
		return cmd.PrintJSONError(fmt.Errorf("open store: %w", err))
	}
	defer svc.Close()
	svc.SetExtensionContext(extension.NewContext(svc, svc.DB(), cfg))
	log.SetProject(svc.Dir())

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := generate.Open(ctx, svc, cfg)
	if err != nil {
		logger.Info("regeneration disabled", "reason", err)
		gen = nil
	}

	srv := web.New(svc, web.Options{
		Config:  cfg,
		Gen:     gen,
		Metrics: metrics.New(),
		Logger:  logger,
	})

	logger.Info("store opened", "dir", svc.Dir())
	err = srv.Run(ctx, addr)

	log.Event("core:web", "serve").
		Author(cmd.Author()).
		Detail("addr", addr).
		Write(err)

	if err != nil && !errors.Is(err, context.Canceled) {
		return cmd.PrintJSONError(fmt.Errorf("web: %w", err))
	}
	return nil
}
