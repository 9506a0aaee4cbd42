package core

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestSignalInterruptSource_RunsCleanupOnSignal(t *testing.T) {
	source := NewSignalInterruptSource(syscall.SIGUSR1)
	ran := make(chan struct{}, 1)
	source.OnInterrupt(func(ctx context.Context) {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("expected cleanup context with deadline")
		}
		ran <- struct{}{}
	})

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("send signal: %v", err)
	}
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatalf("cleanup did not run")
	}
	select {
	case <-source.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("done channel not closed")
	}
}

func TestSignalInterruptSource_DetachSkipsCleanup(t *testing.T) {
	source := NewSignalInterruptSource(syscall.SIGUSR2)
	stop := source.OnInterrupt(func(context.Context) {
		t.Errorf("cleanup must not run after detach")
	})
	stop()
	stop()

	select {
	case <-source.Done():
		t.Fatalf("done must stay open when nothing fired")
	case <-time.After(50 * time.Millisecond):
	}
}
