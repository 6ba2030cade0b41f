// Package controller implements the replication controller — the heart
// of a node. It serializes all local writes and inbound replications
// through a single node-wide lock, assigns vector clocks, applies the
// concurrent-write policy, drives the causal-delivery state machine
// against the hold-back queue, and dispatches outbound propagation to
// every peer.
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"causalkv/internal/clock"
	"causalkv/internal/holdback"
	"causalkv/internal/oplog"
	"causalkv/internal/store"
	"causalkv/internal/transport"
)

const (
	replicateTimeout = 3 * time.Second
	backoffBase      = 250 * time.Millisecond
	backoffFactor    = 2
	backoffCap       = 30 * time.Second
)

// Health is the observability snapshot returned by GET /health.
type Health struct {
	NodeID      string            `json:"node_id"`
	VectorClock clock.VectorClock `json:"vector_clock"`
	StoreSize   int               `json:"store_size"`
	QueueSize   int               `json:"queue_size"`
	LogSize     int               `json:"log_size"`
}

// Controller is a single node's replication engine. Construct one with
// New and never copy it — it owns a mutex.
type Controller struct {
	mu sync.Mutex

	self    string
	members []string // sorted, includes self

	vc    clock.VectorClock
	store *store.Store
	log   *oplog.Log
	queue *holdback.Queue

	transport transport.Transport

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Controller for node selfID, given the full fixed
// membership (including selfID) and the transport used to reach peers.
func New(selfID string, members []string, tr transport.Transport) *Controller {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		self:      selfID,
		members:   sorted,
		vc:        clock.New(sorted),
		store:     store.New(),
		log:       oplog.New(),
		queue:     holdback.New(),
		transport: tr,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Close cancels the background context used by outbound replication.
// Each per-attempt context derives from it, so an attempt already in
// progress sees its context cancelled, and no further retries start.
func (c *Controller) Close() {
	c.cancel()
}

func (c *Controller) isMember(id string) bool {
	for _, m := range c.members {
		if m == id {
			return true
		}
	}
	return false
}

func (c *Controller) peerIDs() []string {
	peers := make([]string, 0, len(c.members)-1)
	for _, m := range c.members {
		if m != c.self {
			peers = append(peers, m)
		}
	}
	return peers
}

// ─── Local write ───────────────────────────────────────────────────────────

// Write performs a local CREATE or UPDATE. It increments this node's own
// clock entry, constructs and applies the resulting operation, appends
// it to the log, and fans it out to every peer. The response's Operation
// carries the assigned clock so callers (and tests) can observe
// causality directly.
func (c *Controller) Write(kind oplog.Kind, key string, payload json.RawMessage) (oplog.Operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.store.Get(key)
	switch kind {
	case oplog.KindCreate:
		if exists {
			return oplog.Operation{}, validationError(fmt.Sprintf("key %q already exists", key))
		}
	case oplog.KindUpdate:
		if !exists {
			return oplog.Operation{}, notFoundError(fmt.Sprintf("key %q not found", key))
		}
	default:
		return oplog.Operation{}, validationError(fmt.Sprintf("unknown operation kind %q", kind))
	}

	c.vc = c.vc.Increment(c.self)
	op := oplog.Operation{
		OpID:    uuid.NewString(),
		Kind:    kind,
		Key:     key,
		Payload: payload,
		Origin:  c.self,
		VC:      c.vc.Copy(),
	}

	c.store.Put(op.Key, op.Payload, op.VC, op.Origin)
	c.log.Append(op)
	c.dispatchOutbound(op)

	return op, nil
}

// Read returns the record stored at key, if any.
func (c *Controller) Read(key string) (store.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Get(key)
}

// List returns a snapshot of every stored record.
func (c *Controller) List() []store.KeyedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.List()
}

// LogSnapshot returns the operation log in delivery order.
func (c *Controller) LogSnapshot() []oplog.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Snapshot()
}

// QueueSnapshot returns the operations currently held back.
func (c *Controller) QueueSnapshot() []oplog.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.List()
}

// Health returns an observability snapshot of the node's state.
func (c *Controller) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Health{
		NodeID:      c.self,
		VectorClock: c.vc.Copy(),
		StoreSize:   c.store.Len(),
		QueueSize:   c.queue.Len(),
		LogSize:     c.log.Len(),
	}
}

// ─── Inbound replication ───────────────────────────────────────────────────

// Deliver handles an operation received from a peer. It validates the
// operation's shape, drops duplicates idempotently, and either applies
// it immediately (draining anything it unblocks in the hold-back queue)
// or enqueues it to wait for its dependencies.
func (c *Controller) Deliver(op oplog.Operation) (deliveredNow bool, err error) {
	if verr := c.validate(op); verr != nil {
		log.Printf("controller(%s): dropping malformed operation %s: %v", c.self, op.OpID, verr)
		return false, verr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.log.Has(op.OpID) || c.queue.Has(op.OpID) {
		return false, nil // already seen — idempotent no-op (P4)
	}

	if c.isDeliverable(op) {
		c.applyRemote(op)
		c.queue.DrainDeliverable(c.isDeliverable, c.applyRemote)
		return true, nil
	}

	c.queue.Add(op)
	return false, nil
}

func (c *Controller) validate(op oplog.Operation) error {
	if op.OpID == "" || op.Key == "" || op.Origin == "" {
		return protocolError("operation missing required fields")
	}
	if !c.isMember(op.Origin) {
		return protocolError(fmt.Sprintf("unknown origin node %q", op.Origin))
	}
	for id := range op.VC {
		if !c.isMember(id) {
			return protocolError(fmt.Sprintf("unknown node %q in vector clock", id))
		}
	}
	return nil
}

// isDeliverable implements the causal-deliverability predicate: op is
// deliverable iff it is the next expected op from its origin, and every
// other dependency it carries has already been absorbed into this
// node's clock.
func (c *Controller) isDeliverable(op oplog.Operation) bool {
	if op.VC[op.Origin] != c.vc[op.Origin]+1 {
		return false
	}
	for _, j := range c.members {
		if j == op.Origin {
			continue
		}
		if op.VC[j] > c.vc[j] {
			return false
		}
	}
	return true
}

// applyRemote applies a deliverable remote operation: resolve the
// concurrent-write policy against the current record, write the winner
// to the store, merge the clock, and append to the log unconditionally
// (the log records every delivered op, including ones the conflict
// policy discarded).
func (c *Controller) applyRemote(op oplog.Operation) {
	takeIncoming := true

	if cur, ok := c.store.Get(op.Key); ok {
		switch cur.VCWritten.Compare(op.VC) {
		case clock.Less:
			takeIncoming = true // current causally precedes incoming
		case clock.Greater:
			takeIncoming = false // stale delivery
		case clock.Equal:
			takeIncoming = false // duplicate by clock
		case clock.Concurrent:
			// LWW-by-origin: incoming wins iff its origin sorts
			// lexicographically after the current value's origin.
			takeIncoming = op.Origin > cur.Origin
		}
	}

	if takeIncoming {
		c.store.Put(op.Key, op.Payload, op.VC, op.Origin)
	}

	c.vc = clock.Merge(c.vc, op.VC)
	c.log.Append(op)
}

// ─── Outbound propagation ───────────────────────────────────────────────────

// dispatchOutbound hands op to every peer in the background. It must
// never be called while holding c.mu for longer than it takes to read
// c.peerIDs() — no network I/O happens inside the critical section.
func (c *Controller) dispatchOutbound(op oplog.Operation) {
	peers := c.peerIDs()
	ctx := c.ctx

	go func() {
		g, gctx := errgroup.WithContext(ctx)
		for _, peerID := range peers {
			peerID := peerID
			g.Go(func() error {
				c.sendWithRetry(gctx, peerID, op)
				return nil // best-effort: never cancel siblings on failure
			})
		}
		_ = g.Wait()
	}()
}

// sendWithRetry retries delivery to one peer with bounded exponential
// backoff until it succeeds or the controller is closed. Propagation is
// at-least-once; peers deduplicate by op_id.
func (c *Controller) sendWithRetry(ctx context.Context, peerID string, op oplog.Operation) {
	backoff := backoffBase

	for {
		attemptCtx, cancel := context.WithTimeout(ctx, replicateTimeout)
		err := c.transport.Send(attemptCtx, peerID, op)
		cancel()

		if err == nil {
			return
		}
		log.Printf("controller(%s): replicate %s to %s failed: %v", c.self, op.OpID, peerID, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= backoffFactor
		if backoff > backoffCap {
			backoff = backoffCap
		}
	}
}
