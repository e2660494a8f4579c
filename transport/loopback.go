package transport

import (
	"context"
	"sync"
)

// Loopback is an in-process Publisher/Subscriber backed by a plain handler
// list — no global singleton, passed explicitly to whatever constructs a
// worker, matching SPEC_FULL.md §9's "no global message-bus singleton"
// design note. Used by tests and by single-process deployments of
// cmd/trackerd.
type Loopback struct {
	mu       sync.Mutex
	handlers []func([]byte)
}

// NewLoopback constructs an empty Loopback.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Publish delivers payload synchronously to every registered handler.
func (l *Loopback) Publish(ctx context.Context, payload []byte) error {
	l.mu.Lock()
	handlers := make([]func([]byte), len(l.handlers))
	copy(handlers, l.handlers)
	l.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
	return nil
}

// Subscribe registers onReceive; it is called for every subsequent Publish.
func (l *Loopback) Subscribe(onReceive func([]byte)) error {
	l.mu.Lock()
	l.handlers = append(l.handlers, onReceive)
	l.mu.Unlock()
	return nil
}
