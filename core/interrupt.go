package core

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const defaultInterruptCleanupTimeout = 2 * time.Minute

// SignalInterruptSource runs registered cleanups when the process receives
// one of its signals. Done is closed once every fired cleanup has returned.
type SignalInterruptSource struct {
	signals []os.Signal
	timeout time.Duration

	mu      sync.Mutex
	pending sync.WaitGroup
	done    chan struct{}
	fired   bool
}

func NewSignalInterruptSource(signals ...os.Signal) *SignalInterruptSource {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	return &SignalInterruptSource{
		signals: signals,
		timeout: defaultInterruptCleanupTimeout,
		done:    make(chan struct{}),
	}
}

func (s *SignalInterruptSource) OnInterrupt(cleanup func(ctx context.Context)) func() {
	if s == nil || cleanup == nil {
		return func() {}
	}
	notify := make(chan os.Signal, 1)
	signal.Notify(notify, s.signals...)
	detached := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(notify)
			close(detached)
		})
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		select {
		case <-notify:
			stop()
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			cleanup(ctx)
			s.markFired()
		case <-detached:
		}
	}()
	return stop
}

// Done is closed after the first interrupt's cleanups complete.
func (s *SignalInterruptSource) Done() <-chan struct{} {
	return s.done
}

func (s *SignalInterruptSource) markFired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return
	}
	s.fired = true
	go func() {
		s.pending.Wait()
		close(s.done)
	}()
}
