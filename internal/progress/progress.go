// Package progress provides CLI progress indicators. Output goes to stderr
// to keep stdout clean for piping, and only appears on a terminal.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// minItems is the minimum number of items before showing progress.
const minItems = 5

const frameInterval = 100 * time.Millisecond

const blank = "                                        "

// Progress tracks and displays operation progress. It is safe for use by
// concurrent workers.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	total   int
	current int
	failed  int
	isTTY   bool
}

// New creates a progress reporter that writes to stderr.
// If total is less than minItems, progress updates are suppressed.
func New(label string, total int) *Progress {
	return &Progress{
		w:     os.Stderr,
		label: label,
		total: total,
		isTTY: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Add advances the counter by n and redraws.
func (p *Progress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.print()
}

// Step records one finished item, counting it as failed when err is non-nil.
func (p *Progress) Step(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	if err != nil {
		p.failed++
	}
	p.print()
}

// Counts returns the finished and failed item counts.
func (p *Progress) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.failed
}

func (p *Progress) print() {
	if p.total < minItems || !p.isTTY {
		return
	}
	pct := 0
	if p.total > 0 {
		pct = (p.current * 100) / p.total
	}
	if p.failed > 0 {
		fmt.Fprintf(p.w, "\r%s... %d/%d (%d%%, %d failed)", p.label, p.current, p.total, pct, p.failed)
		return
	}
	fmt.Fprintf(p.w, "\r%s... %d/%d (%d%%)", p.label, p.current, p.total, pct)
}

// Done clears the progress line (on TTY) to make way for final output.
func (p *Progress) Done() {
	if p.total < minItems || !p.isTTY {
		return
	}
	fmt.Fprintf(p.w, "\r%s\r", blank)
}

// Spinner shows that a single slow call, such as an LLM request, is in
// progress.
type Spinner struct {
	w      io.Writer
	label  string
	isTTY  bool
	frames []string
	stop   chan struct{}
	done   chan struct{}
}

// NewSpinner creates a spinner that writes to stderr.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		w:      os.Stderr,
		label:  label,
		isTTY:  term.IsTerminal(int(os.Stderr.Fd())),
		frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start animates the spinner until Stop is called. A no-op off a terminal.
func (s *Spinner) Start() {
	if !s.isTTY || s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		t := time.NewTicker(frameInterval)
		defer t.Stop()
		for frame := 0; ; frame = (frame + 1) % len(s.frames) {
			fmt.Fprintf(s.w, "\r%s %s...", s.frames[frame], s.label)
			select {
			case <-s.stop:
				fmt.Fprintf(s.w, "\r%s\r", blank)
				return
			case <-t.C:
			}
		}
	}()
}

// Stop clears the spinner line.
func (s *Spinner) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop = nil
}
