// Package oplog defines the replicated Operation and the append-only log
// every node keeps of operations it has delivered — locally produced or
// received from a peer.
package oplog

import (
	"encoding/json"

	"causalkv/internal/clock"
)

// Kind distinguishes the two mutations this system supports. Deletion is
// not part of this system.
type Kind string

const (
	KindCreate Kind = "CREATE"
	KindUpdate Kind = "UPDATE"
)

// Operation is an immutable message describing one mutation. It carries
// the vector clock assigned to it at its origin — the origin's clock
// after its own entry was incremented for this write — which is what
// lets every other node decide when it is safe to apply.
type Operation struct {
	OpID    string            `json:"op_id"`
	Kind    Kind              `json:"kind"`
	Key     string            `json:"key"`
	Payload json.RawMessage   `json:"payload"`
	Origin  string            `json:"origin"`
	VC      clock.VectorClock `json:"vc"`
}

// Log is an append-only, ordered sequence of delivered operations. It is
// not safe for concurrent use on its own — callers serialize access to
// it through the same lock that guards the rest of a node's state.
type Log struct {
	ops  []Operation
	seen map[string]struct{}
}

// New returns an empty Log.
func New() *Log {
	return &Log{seen: make(map[string]struct{})}
}

// Append adds op to the end of the log. Appending the same op_id twice
// is a programmer error — callers must check Has first (invariant I3).
func (l *Log) Append(op Operation) {
	l.ops = append(l.ops, op)
	l.seen[op.OpID] = struct{}{}
}

// Has reports whether op_id has already been appended.
func (l *Log) Has(opID string) bool {
	_, ok := l.seen[opID]
	return ok
}

// Snapshot returns a copy of the log in delivery order, safe for the
// caller to retain or serialize without aliasing internal state.
func (l *Log) Snapshot() []Operation {
	out := make([]Operation, len(l.ops))
	for i, op := range l.ops {
		op.VC = op.VC.Copy()
		op.Payload = append(json.RawMessage(nil), op.Payload...)
		out[i] = op
	}
	return out
}

// Len returns the number of operations in the log.
func (l *Log) Len() int {
	return len(l.ops)
}
