package web

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jpl-au/cellrev/internal/metrics"
	"github.com/jpl-au/cellrev/internal/session"
)

// SessionHeader carries the token returned by opening a session. Requests
// with a token for a session that has since been replaced get 409.
const SessionHeader = "X-Cellrev-Session"

var errSessionReplaced = errors.New("session replaced by a newer one")

// view is the server-side display of one editing session. It records what
// the client should draw; the client polls it.
type view struct {
	mu          sync.Mutex
	frame       session.Frame
	shown       int
	next        int
	live        map[int]string // registration -> pair id
	highlighted map[string]bool
	err         string
	scroll      map[string]float64
}

func newView() *view {
	return &view{
		live:        make(map[int]string),
		highlighted: make(map[string]bool),
		scroll:      make(map[string]float64),
	}
}

func (v *view) Show(f session.Frame) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame = f
	v.shown++
}

func (v *view) Correlate(pairID string) func() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.next++
	id := v.next
	v.live[id] = pairID
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.live, id)
		delete(v.highlighted, pairID)
	}
}

func (v *view) Highlight(pairID string, on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if on {
		v.highlighted[pairID] = true
	} else {
		delete(v.highlighted, pairID)
	}
}

func (v *view) Notify(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err.Error()
}

func (v *view) Scroll(p session.Pane, pos float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scroll[p.String()] = pos
}

func (v *view) clearError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = ""
}

// Snapshot is what GET /api/sessions/{id} returns.
type Snapshot struct {
	Session      string             `json:"session"`
	Frame        session.Frame      `json:"frame"`
	Shown        int                `json:"shown"`
	Correlations []string           `json:"correlations"`
	Highlighted  []string           `json:"highlighted"`
	Error        string             `json:"error,omitempty"`
	Scroll       map[string]float64 `json:"scroll,omitempty"`
}

func (v *view) snapshot(token string) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	pairs := make(map[string]bool, len(v.live))
	for _, p := range v.live {
		pairs[p] = true
	}
	return Snapshot{
		Session:      token,
		Frame:        v.frame,
		Shown:        v.shown,
		Correlations: slices.Sorted(maps.Keys(pairs)),
		Highlighted:  slices.Sorted(maps.Keys(v.highlighted)),
		Error:        v.err,
		Scroll:       maps.Clone(v.scroll),
	}
}

// client ties an open session to the token handed to the browser.
type client struct {
	token string
	sess  *session.Session
	view  *view
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callCtx(r)
	defer cancel()
	id := r.PathValue("id")
	rd, err := s.svc.Render(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	v := newView()
	sess, err := s.reg.Open(rd.Cell.CellID, session.Baseline{
		Primary:   rd.Cell.Primary,
		Secondary: rd.Cell.Secondary,
		Rendered:  rd.Diff,
	}, v)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c := &client{token: uuid.NewString(), sess: sess, view: v}

	s.mu.Lock()
	s.clients[sess.Cell()] = c
	s.mu.Unlock()
	s.metrics.OpenSessions.Set(float64(len(s.reg.Cells())))

	s.logger.Info("session opened", "cell", sess.Cell(), "session", c.token)
	writeJSON(w, http.StatusCreated, v.snapshot(c.token))
}

// lookup finds the client for a request, checking its token when given.
func (s *Server) lookup(r *http.Request) (*client, error) {
	id := r.PathValue("id")
	s.mu.Lock()
	c, ok := s.clients[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no session for %q", session.ErrSessionClosed, id)
	}
	if cur, ok := s.reg.Get(id); !ok || cur != c.sess {
		return nil, fmt.Errorf("%w: no session for %q", session.ErrSessionClosed, id)
	}
	if tok := r.Header.Get(SessionHeader); tok != "" && tok != c.token {
		return nil, errSessionReplaced
	}
	return c, nil
}

// withClient resolves the session and runs fn, replying with the snapshot.
func (s *Server) withClient(w http.ResponseWriter, r *http.Request, fn func(*client) error) {
	c, err := s.lookup(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := fn(c); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.view.snapshot(c.token))
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.withClient(w, r, func(*client) error { return nil })
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	c, err := s.lookup(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.mu.Lock()
	delete(s.clients, c.sess.Cell())
	s.mu.Unlock()
	s.reg.Close(c.sess.Cell())
	s.metrics.OpenSessions.Set(float64(len(s.reg.Cells())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	s.withClient(w, r, func(c *client) error {
		_, err := s.reg.Edit(c.sess.Cell())
		return err
	})
}

type inputRequest struct {
	Text *string `json:"text"`
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Text == nil {
		s.writeError(w, fmt.Errorf("%w: text is required", errBadRequest))
		return
	}
	s.withClient(w, r, func(c *client) error {
		c.view.clearError()
		return c.sess.SetInput(*req.Text)
	})
}

func (s *Server) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	s.withClient(w, r, func(c *client) error {
		c.view.clearError()
		_, err := c.sess.Save(r.Context())
		return err
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.withClient(w, r, func(c *client) error {
		c.view.clearError()
		return c.sess.Cancel()
	})
}

func (s *Server) handleSessionRegenerate(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if r.ContentLength != 0 {
		if err := s.decode(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if req.Variant == "" {
		req.Variant = "default"
	}
	s.withClient(w, r, func(c *client) error {
		c.view.clearError()
		_, err := c.sess.Regenerate(r.Context(), req.Variant)
		s.metrics.Regenerated.WithLabelValues(req.Variant, metrics.Result(err)).Inc()
		return err
	})
}

type hoverRequest struct {
	Pair     string `json:"pair"`
	Entering bool   `json:"entering"`
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	var req hoverRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.withClient(w, r, func(c *client) error {
		if !c.sess.Hover(req.Pair, req.Entering) {
			return fmt.Errorf("%w: no live pair %q", errBadRequest, req.Pair)
		}
		return nil
	})
}

type scrollRequest struct {
	Pane     string  `json:"pane"`
	Position float64 `json:"position"`
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	var req scrollRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := session.ParsePane(req.Pane)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	s.withClient(w, r, func(c *client) error {
		if c.sess.Scroll(p, req.Position) {
			c.view.Scroll(p, req.Position)
		}
		return nil
	})
}
