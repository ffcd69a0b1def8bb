package session

import (
	"sort"
	"sync"

	"github.com/jpl-au/cellrev/internal/validate"
)

// Registry holds the open sessions, at most one per cell, and enforces
// that at most one cell is editing at a time: sessions only enter Editing
// through Open or Edit, both under its lock.
type Registry struct {
	opts    Options
	preview Previewer
	saver   Saver
	regen   Regenerator

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry. regen may be nil.
func NewRegistry(opts Options, p Previewer, s Saver, r Regenerator) *Registry {
	return &Registry{
		opts:     opts,
		preview:  p,
		saver:    s,
		regen:    r,
		sessions: make(map[string]*Session),
	}
}

// Open starts editing a cell. Any other cell still editing is cancelled
// first, and an existing session on the same cell is closed and replaced.
func (r *Registry) Open(cellID string, base Baseline, view View) (*Session, error) {
	id, err := validate.CellID(cellID, 0)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessions[id]; ok {
		old.close()
		delete(r.sessions, id)
	}
	for _, other := range r.sessions {
		if other.Editing() {
			_ = other.Cancel()
		}
	}

	s := newSession(id, base, view, r.opts, r.preview, r.saver, r.regen)
	r.sessions[id] = s
	if err := s.edit(); err != nil {
		return nil, err
	}
	return s, nil
}

// Edit puts an idle session back into Editing, cancelling any other cell
// that is editing.
func (r *Registry) Edit(cellID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[cellID]
	if !ok {
		return nil, ErrSessionClosed
	}
	for id, other := range r.sessions {
		if id != cellID && other.Editing() {
			_ = other.Cancel()
		}
	}
	return s, s.edit()
}

// Get returns the session for a cell.
func (r *Registry) Get(cellID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[cellID]
	return s, ok
}

// Close tears down a cell's session. Closing an unknown cell is a no-op.
func (r *Registry) Close(cellID string) {
	r.mu.Lock()
	s, ok := r.sessions[cellID]
	delete(r.sessions, cellID)
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}

// Active returns the cell currently editing, if any.
func (r *Registry) Active() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.Editing() {
			return id, true
		}
	}
	return "", false
}

// Cells returns the ids of open sessions, sorted.
func (r *Registry) Cells() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
