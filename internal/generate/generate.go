// Package generate regenerates secondary cell text with an LLM: it builds
// a prompt from a variant template and the cell's texts, calls the
// configured provider with retries and stores the result through the cell
// service.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jpl-au/cellrev/internal/config"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/session"
)

var (
	// ErrUnknownVariant is returned for a variant name that does not exist.
	ErrUnknownVariant = errors.New("unknown prompt variant")
	// ErrEmptyPrompt is returned when a custom prompt is blank.
	ErrEmptyPrompt = errors.New("custom prompt is empty")
	// ErrEmptyResponse is returned when the provider replies with no text.
	ErrEmptyResponse = errors.New("provider returned no text")
	// ErrNoAPIKey is returned when no API key is set for the provider.
	ErrNoAPIKey = errors.New("no API key")
	// ErrUnknownProvider is returned for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Author is recorded on versions written by the generator when the caller
// names nobody.
const Author = "generator"

// Generator regenerates cells.
type Generator struct {
	svc      service.Service
	provider Provider
	cfg      *config.Config
	retries  int
	delay    time.Duration
	workers  int
}

// New returns a Generator that writes through svc.
func New(svc service.Service, p Provider, cfg *config.Config) *Generator {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Generator{
		svc:      svc,
		provider: p,
		cfg:      cfg,
		retries:  cfg.MaxRetries(),
		delay:    cfg.RetryDelay(),
		workers:  min(max(cfg.BatchSize(), 1), config.MaxBatchSize),
	}
}

// Open builds the configured provider and returns a Generator over svc.
// It fails with ErrNoAPIKey when no key is set, which callers usually treat
// as "regeneration disabled".
func Open(ctx context.Context, svc service.Service, cfg *config.Config) (*Generator, error) {
	p, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(svc, p, cfg), nil
}

// Provider returns the provider in use.
func (g *Generator) Provider() Provider { return g.provider }

// Request describes one regeneration.
type Request struct {
	Variant Variant
	Custom  string // template for VariantCustom
	Author  string
	Message string

	// OnResult, if set, is called from the worker as each cell of
	// RegenerateAll finishes.
	OnResult func(*Result)
}

// Result is the outcome for one cell.
type Result struct {
	ID       string              `json:"id"`
	Text     string              `json:"text,omitempty"`
	Saved    *service.SaveResult `json:"saved,omitempty"`
	Attempts int                 `json:"attempts"`
	Err      error               `json:"-"`
	Error    string              `json:"error,omitempty"`
}

func (r *Result) fail(err error) *Result {
	r.Err = err
	r.Error = err.Error()
	return r
}

// Draft produces new text for a cell without storing it.
func (g *Generator) Draft(ctx context.Context, id string, req Request) (string, int, error) {
	c, err := g.svc.Get(ctx, id, false)
	if err != nil {
		return "", 0, err
	}
	if req.Variant == "" {
		req.Variant = VariantDefault
	}
	prompt, err := Build(g.cfg, req.Variant, req.Custom, c)
	if err != nil {
		return "", 0, err
	}
	return g.complete(ctx, prompt)
}

// Drafter adapts Draft to an editing session, which loads the text as
// input instead of saving it. variant is a variant name; custom prompts
// are not available this way.
func (g *Generator) Drafter() session.RegenerateFunc {
	return func(ctx context.Context, cellID, variant string) (string, error) {
		v, err := ParseVariant(variant)
		if err != nil {
			return "", err
		}
		text, _, err := g.Draft(ctx, cellID, Request{Variant: v})
		return text, err
	}
}

// Regenerate produces new text for a cell and saves it as a new version.
func (g *Generator) Regenerate(ctx context.Context, id string, req Request) *Result {
	if req.Variant == "" {
		req.Variant = VariantDefault
	}
	r := &Result{ID: id}
	text, attempts, err := g.Draft(ctx, id, req)
	r.Attempts = attempts
	if err != nil {
		g.audit(r, req, err)
		return r.fail(err)
	}
	r.Text = text

	author := req.Author
	if author == "" {
		author = Author
	}
	msg := req.Message
	if msg == "" {
		msg = fmt.Sprintf("Regenerated (%s)", req.Variant)
	}
	saved, err := g.svc.Save(ctx, id, text, author, msg)
	if err != nil {
		g.audit(r, req, err)
		return r.fail(err)
	}
	r.Saved = saved
	g.audit(r, req, nil)
	return r
}

// RegenerateAll regenerates cells concurrently with at most BatchSize
// workers. Each cell succeeds or fails on its own; results are in ids order.
func (g *Generator) RegenerateAll(ctx context.Context, ids []string, req Request) []*Result {
	results := make([]*Result, len(ids))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, id := range ids {
		eg.Go(func() error {
			results[i] = g.Regenerate(ctx, id, req)
			if req.OnResult != nil {
				req.OnResult(results[i])
			}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// complete calls the provider, retrying failures up to the configured
// count. It returns the number of attempts made.
func (g *Generator) complete(ctx context.Context, prompt string) (string, int, error) {
	var lastErr error
	for attempt := 1; attempt <= g.retries+1; attempt++ {
		text, err := g.provider.Complete(ctx, prompt)
		if err == nil {
			if text = strings.TrimSpace(text); text != "" {
				return text, attempt, nil
			}
			err = ErrEmptyResponse
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", attempt, ctx.Err()
		}
		if attempt <= g.retries && g.delay > 0 {
			select {
			case <-ctx.Done():
				return "", attempt, ctx.Err()
			case <-time.After(g.delay):
			}
		}
	}
	return "", g.retries + 1, fmt.Errorf("%s: %w", g.provider.Name(), lastErr)
}

func (g *Generator) audit(r *Result, req Request, err error) {
	b := log.Event("generate", "regenerate").
		Cell(r.ID).
		Author(req.Author).
		Detail("variant", string(req.Variant)).
		Detail("provider", g.provider.Name()).
		Detail("attempts", r.Attempts)
	if r.Saved != nil {
		b = b.ResultVersion(r.Saved.Version)
	}
	b.Write(err)
}
