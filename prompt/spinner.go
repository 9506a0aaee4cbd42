package prompt

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"

	"github.com/goliatone/go-event-registrations/core"
)

// Spinner reports progress on a terminal. Quiet turns it into a no-op.
type Spinner struct {
	mu     sync.Mutex
	out    io.Writer
	quiet  bool
	active *spinner.Spinner
}

func NewSpinner(out io.Writer, quiet bool) *Spinner {
	if out == nil {
		out = os.Stderr
	}
	return &Spinner{out: out, quiet: quiet}
}

func (s *Spinner) Start(message string) {
	if s == nil || s.quiet {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Stop()
	}
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(s.out))
	sp.Suffix = " " + message
	sp.Start()
	s.active = sp
}

func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return
	}
	s.active.Stop()
	s.active = nil
}

var _ core.ProgressReporter = (*Spinner)(nil)
