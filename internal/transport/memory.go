package transport

import (
	"context"
	"fmt"
	"sync"

	"causalkv/internal/oplog"
)

// InMemoryTransport wires Receivers (typically *controller.Controller
// values) together in the same process, delivering synchronously with
// no network involved. Tests use it to control exactly when and in what
// order each node observes a given operation — something a real HTTP
// transport can't promise.
type InMemoryTransport struct {
	mu        sync.RWMutex
	receivers map[string]Receiver
}

// NewInMemory returns an empty InMemoryTransport. Register each peer
// before it can receive anything.
func NewInMemory() *InMemoryTransport {
	return &InMemoryTransport{receivers: make(map[string]Receiver)}
}

// Register associates peerID with the Receiver that should accept
// operations addressed to it.
func (t *InMemoryTransport) Register(peerID string, r Receiver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.receivers[peerID] = r
}

// Send delivers op to peerID's registered Receiver directly, ignoring
// ctx — delivery is synchronous and in-process, so there is nothing to
// cancel.
func (t *InMemoryTransport) Send(ctx context.Context, peerID string, op oplog.Operation) error {
	t.mu.RLock()
	r, ok := t.receivers[peerID]
	t.mu.RUnlock()

	if !ok {
		return fmt.Errorf("transport: no receiver registered for peer %q", peerID)
	}
	_, err := r.Deliver(op)
	return err
}
