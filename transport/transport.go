// Package transport defines the opaque publish/subscribe boundary between
// the tracking pipeline and whatever carries JSON messages in and out
// (spec.md §1: "the transport plugin ... addressed only by their
// contracts"). Concrete adapters (Loopback, NDJSON) live alongside this
// file; worker.Worker depends only on the two interfaces below.
package transport

import "context"

// Publisher hands a fully-formed JSON payload to the transport for
// delivery. It replaces the source's global g_MessageManager.sendMessage.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// Subscriber registers a callback invoked once per inbound message. It
// replaces the source's observer-pattern onMessageReceived signal.
type Subscriber interface {
	Subscribe(onReceive func(payload []byte)) error
}
