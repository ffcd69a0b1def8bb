// Package web serves the review surface over HTTP: stateless preview and
// cell operations, server-side editing sessions, and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/diff"
	"github.com/jpl-au/cellrev/internal/generate"
	"github.com/jpl-au/cellrev/internal/metrics"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/session"
	"github.com/jpl-au/cellrev/internal/store"
	"github.com/jpl-au/cellrev/internal/validate"
)

// Author is recorded on writes made through the web surface when no author
// is configured.
const Author = "web"

// shutdownGrace bounds how long Run waits for in-flight requests.
const shutdownGrace = 5 * time.Second

var errBadRequest = errors.New("bad request")

// Server is the HTTP surface.
type Server struct {
	svc     service.Service
	gen     *generate.Generator
	cfg     *config.Config
	reg     *session.Registry
	metrics *metrics.Metrics
	logger  *slog.Logger
	author  string
	timeout time.Duration
	limit   int64

	mu      sync.Mutex
	clients map[string]*client // cell id -> client holding its session
}

// Options configures a Server. Gen may be nil, in which case regeneration
// endpoints report that no generator is configured.
type Options struct {
	Config  *config.Config
	Gen     *generate.Generator
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// New returns a Server over svc.
func New(svc service.Service, opts Options) *Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	author := cfg.Author.Name
	if author == "" {
		author = Author
	}

	s := &Server{
		svc:     svc,
		gen:     opts.Gen,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		author:  author,
		timeout: cfg.Timeout(),
		limit:   2*cfg.MaxContent() + 64<<10,
		clients: make(map[string]*client),
	}

	var regen session.Regenerator
	if s.gen != nil {
		regen = s.gen.Drafter()
	}
	s.reg = session.NewRegistry(session.Options{
		Quiet:   cfg.Quiet(),
		Timeout: cfg.Timeout(),
		Hooks: session.Hooks{
			Stale:   func(string) { m.Stale.Inc() },
			Preview: func(_ string, err error) { m.Previews.WithLabelValues(metrics.Result(err)).Inc() },
			Save:    func(_ string, err error) { m.Saves.WithLabelValues(metrics.Result(err)).Inc() },
		},
	}, session.PreviewFunc(svc.Preview), session.SaveFunc(s.commit), regen)
	return s
}

// commit is the session Saver: it stores text and hands back the cell as
// stored, so the next edit starts from the normalised text.
func (s *Server) commit(ctx context.Context, cellID, text string) (session.Baseline, error) {
	res, err := s.svc.Save(ctx, cellID, text, s.author, "")
	if err != nil {
		return session.Baseline{}, err
	}
	return session.Baseline{
		Primary:   res.Cell.Primary,
		Secondary: res.Cell.Secondary,
		Rendered:  res.Rendered,
	}, nil
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, name string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(name, h))
	}

	route("GET /healthz", "healthz", s.handleHealth)
	route("POST /api/preview", "preview", s.handlePreview)
	route("GET /api/stats", "stats", s.handleStats)
	route("POST /api/ratios", "ratios", s.handleRatios)
	route("POST /api/regenerate", "regenerate_bulk", s.handleRegenerateAll)

	route("GET /api/cells", "cells_list", s.handleList)
	route("GET /api/cells/{id}", "cell_get", s.handleGet)
	route("GET /api/cells/{id}/history", "cell_history", s.handleHistory)
	route("POST /api/cells/{id}/save", "cell_save", s.handleSave)
	route("POST /api/cells/{id}/approve", "cell_approve", s.handleApprove)
	route("POST /api/cells/{id}/reset", "cell_reset", s.handleReset)
	route("GET /api/cells/{id}/comment", "comment_get", s.handleGetComment)
	route("POST /api/cells/{id}/comment", "comment_save", s.handleSaveComment)
	route("POST /api/cells/{id}/regenerate", "cell_regenerate", s.handleRegenerate)

	route("POST /api/sessions/{id}", "session_open", s.handleOpen)
	route("GET /api/sessions/{id}", "session_get", s.handleFrame)
	route("DELETE /api/sessions/{id}", "session_close", s.handleClose)
	route("POST /api/sessions/{id}/edit", "session_edit", s.handleEdit)
	route("POST /api/sessions/{id}/input", "session_input", s.handleInput)
	route("POST /api/sessions/{id}/save", "session_save", s.handleSessionSave)
	route("POST /api/sessions/{id}/cancel", "session_cancel", s.handleCancel)
	route("POST /api/sessions/{id}/regenerate", "session_regenerate", s.handleSessionRegenerate)
	route("POST /api/sessions/{id}/hover", "session_hover", s.handleHover)
	route("POST /api/sessions/{id}/scroll", "session_scroll", s.handleScroll)

	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
// and closes every editing session.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.reg.CloseAll()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("web server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := srv.Shutdown(sctx)
	s.reg.CloseAll()
	s.metrics.OpenSessions.Set(0)
	return err
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		d := time.Since(start)
		s.metrics.Observe(name, rec.code, d)
		level := slog.LevelDebug
		if rec.code >= 500 {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request",
			"route", name, "method", r.Method, "path", r.URL.Path,
			"status", rec.code, "duration", d)
	})
}

// callCtx bounds a stateless request by the configured timeout.
func (s *Server) callCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= 500 {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, session.ErrSessionClosed):
		return http.StatusNotFound
	case errors.Is(err, validate.ErrContentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, diff.ErrInvalidInput),
		errors.Is(err, validate.ErrInvalidCellID),
		errors.Is(err, validate.ErrCellIDTooLong),
		errors.Is(err, validate.ErrInvalidText),
		errors.Is(err, validate.ErrInvalidColumn),
		errors.Is(err, validate.ErrInvalidApproval),
		errors.Is(err, store.ErrInvalidOption),
		errors.Is(err, generate.ErrUnknownVariant),
		errors.Is(err, generate.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNotEditing),
		errors.Is(err, session.ErrStaleResponse),
		errors.Is(err, errSessionReplaced):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoGenerator):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, session.ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into dst, rejecting trailing data.
func (s *Server) decode(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, s.limit))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
