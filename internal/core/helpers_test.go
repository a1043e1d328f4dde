//go:build unix || windows

package core

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"mininet/endpoint"
)

// syncBuffer is a bytes.Buffer safe for one writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// runListen starts m in the background and returns the bound port and
// a channel carrying Run's result.
func runListen(t *testing.T, ctx context.Context, m *ListenMode) (uint16, <-chan error) {
	t.Helper()
	ready := make(chan endpoint.Addr, 1)
	m.OnReady = func(a endpoint.Addr) { ready <- a }

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case a := <-ready:
		return a.Port, done
	case err := <-done:
		t.Fatalf("Run returned before listening: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("listener never became ready")
	}
	return 0, nil
}

// wait returns Run's result or fails the test if it takes too long.
func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return in time")
		return nil
	}
}
