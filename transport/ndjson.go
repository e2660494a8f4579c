package transport

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// NDJSON carries newline-delimited JSON messages over any
// io.ReadWriteCloser (a TCP net.Conn, a pipe, ...), generalising the
// source's plain byte-message relay (Service/MessageRelayManager.cpp) into
// a real, pluggable Go transport since no message-broker client used by a
// tracking-domain example is available to wire instead (see DESIGN.md).
type NDJSON struct {
	conn io.ReadWriteCloser
	mu   sync.Mutex
}

// NewNDJSON wraps conn as a Publisher/Subscriber.
func NewNDJSON(conn io.ReadWriteCloser) *NDJSON {
	return &NDJSON{conn: conn}
}

// Publish writes payload followed by a newline. Concurrent publishes are
// serialised so writes from different goroutines never interleave.
func (n *NDJSON) Publish(ctx context.Context, payload []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.conn.Write(payload); err != nil {
		return errors.Wrap(err, "ndjson: write payload")
	}
	if _, err := n.conn.Write([]byte("\n")); err != nil {
		return errors.Wrap(err, "ndjson: write delimiter")
	}
	return nil
}

// Subscribe starts a background reader that invokes onReceive once per
// line. The reader goroutine exits when conn is closed or the stream ends.
func (n *NDJSON) Subscribe(onReceive func([]byte)) error {
	go func() {
		scanner := bufio.NewScanner(n.conn)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			onReceive(line)
		}
	}()
	return nil
}

// Close releases the underlying connection.
func (n *NDJSON) Close() error {
	return n.conn.Close()
}
