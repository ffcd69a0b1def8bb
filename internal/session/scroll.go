package session

import (
	"fmt"
	"sync"
)

// Pane is one of the three linked scroll regions of an editing cell.
type Pane int

const (
	PanePrimary Pane = iota
	PaneSecondary
	PaneInput
)

var paneNames = [...]string{"primary", "secondary", "input"}

func (p Pane) String() string {
	if int(p) < len(paneNames) {
		return paneNames[p]
	}
	return fmt.Sprintf("Pane(%d)", int(p))
}

// ParsePane returns the pane with the given name.
func ParsePane(s string) (Pane, error) {
	for i, n := range paneNames {
		if n == s {
			return Pane(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pane %q (expected primary, secondary or input)", s)
}

// ScrollSync mirrors a scroll position across panes. The syncing guard is
// set before propagation and cleared after it, so the scroll events the
// siblings raise while being moved are dropped instead of echoing back.
type ScrollSync struct {
	apply func(Pane, float64)

	mu      sync.Mutex
	syncing bool
}

// NewScrollSync returns a ScrollSync that moves panes with apply.
func NewScrollSync(apply func(Pane, float64)) *ScrollSync {
	return &ScrollSync{apply: apply}
}

// Scroll propagates pos from one pane to the others. It returns false when
// called during a propagation.
func (s *ScrollSync) Scroll(from Pane, pos float64) bool {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return false
	}
	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	for p := range Pane(len(paneNames)) {
		if p != from {
			s.apply(p, pos)
		}
	}
	return true
}
