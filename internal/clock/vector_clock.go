// Package clock implements vector-clock algebra: the version-vector type
// that lets every node in the cluster detect whether one write causally
// precedes, follows, or is concurrent with another.
//
// Problem:
// In a distributed system, two nodes can update the same key at the same
// time. We need a way to detect:
//
//  1. One version is clearly newer   -> accept it
//  2. One version is clearly older   -> discard it
//  3. Both were written independently -> real conflict
//
// A vector clock solves this. Each entry is a per-node counter; a node
// increments its own entry on every local write. Comparing two clocks
// entrywise tells you the happens-before relationship exactly, without
// forcing writes into a single global order.
package clock

import "maps"

// Relation describes how one VectorClock relates to another.
type Relation int

const (
	Equal      Relation = iota // componentwise identical
	Less                       // this clock causally precedes the other
	Greater                    // this clock causally follows the other
	Concurrent                 // neither dominates; a real conflict
)

// VectorClock maps a node identifier to its logical counter. Entries
// absent from the map are treated as zero. Callers must treat values as
// immutable: Increment and Merge always return a new map rather than
// mutating the receiver, so a clock once stored in a Record or appended
// to the operation log can never be aliased and silently changed out
// from under a reader.
type VectorClock map[string]uint64

// New returns a zeroed clock with an explicit entry for every member of
// the membership. Pre-populating every member (rather than leaving
// absent keys to default to zero) keeps JSON-encoded clocks
// self-describing on the wire.
func New(members []string) VectorClock {
	vc := make(VectorClock, len(members))
	for _, m := range members {
		vc[m] = 0
	}
	return vc
}

// Copy returns a deep copy. Maps are reference types in Go; without
// copying, two variables could share the same backing map and mutate
// each other through it.
func (vc VectorClock) Copy() VectorClock {
	out := make(VectorClock, len(vc))
	maps.Copy(out, vc)
	return out
}

// Increment returns a copy of vc with node's entry incremented by one.
// It panics if the counter would overflow uint64 — per spec this is a
// fatal condition (the node should abort rather than wrap around).
func (vc VectorClock) Increment(node string) VectorClock {
	if vc[node] == ^uint64(0) {
		panic("clock: vector clock counter overflow for node " + node)
	}
	out := vc.Copy()
	out[node] = vc[node] + 1
	return out
}

// Compare returns how vc relates to other:
//
//	Less       if vc[i] <= other[i] for all i, and vc != other
//	Greater    if other[i] <= vc[i] for all i, and vc != other
//	Equal      if vc == other componentwise
//	Concurrent otherwise
func (vc VectorClock) Compare(other VectorClock) Relation {
	var lessFound, greaterFound bool

	seen := make(map[string]struct{}, len(vc)+len(other))
	for k := range vc {
		seen[k] = struct{}{}
	}
	for k := range other {
		seen[k] = struct{}{}
	}

	for k := range seen {
		a, b := vc[k], other[k]
		switch {
		case a < b:
			lessFound = true
		case a > b:
			greaterFound = true
		}
	}

	switch {
	case !lessFound && !greaterFound:
		return Equal
	case lessFound && !greaterFound:
		return Less
	case !lessFound && greaterFound:
		return Greater
	default:
		return Concurrent
	}
}

// Merge returns the componentwise maximum of a and b: merged[i] =
// max(a[i], b[i]). It does not resolve conflicts — it only combines
// version history, absorbing whatever either clock has already seen.
func Merge(a, b VectorClock) VectorClock {
	out := make(VectorClock, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}
