// Package store contains the local store: the mapping from a record's
// key to its current payload and the vector clock at which it was last
// written.
//
// Big idea:
//
// The store itself has no opinion about conflicts. Put always
// overwrites unconditionally — whoever calls it (the replication
// controller) has already decided, using the concurrent-write policy,
// which value should win. Keeping that decision out of the store is
// what lets the store stay a dumb, easily-tested mapping.
package store

import (
	"encoding/json"

	"causalkv/internal/clock"
)

// Record is one stored entity: an opaque payload plus the vector clock
// and origin node that produced it. Payload is treated as opaque —
// schema validation of its contents happens above this package.
type Record struct {
	Payload   json.RawMessage   `json:"payload"`
	VCWritten clock.VectorClock `json:"vc_written"`
	Origin    string            `json:"origin"`
}

// KeyedRecord pairs a Record with the key it is stored under, for list
// responses.
type KeyedRecord struct {
	Key string `json:"key"`
	Record
}

// Store is the in-memory key -> Record mapping. It is not safe for
// concurrent use on its own; the replication controller serializes all
// access to it through its node-wide lock, so there is no mutex here —
// adding one would just be a second lock nobody needs to take.
type Store struct {
	data map[string]Record
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string]Record)}
}

// Get returns the Record stored at key, if any.
func (s *Store) Get(key string) (Record, bool) {
	r, ok := s.data[key]
	return r, ok
}

// Put unconditionally writes a Record built from payload, vc and origin
// at key, overwriting whatever was there.
func (s *Store) Put(key string, payload json.RawMessage, vc clock.VectorClock, origin string) {
	s.data[key] = Record{Payload: payload, VCWritten: vc, Origin: origin}
}

// List returns every stored record as a point-in-time snapshot.
func (s *Store) List() []KeyedRecord {
	out := make([]KeyedRecord, 0, len(s.data))
	for k, r := range s.data {
		out = append(out, KeyedRecord{Key: k, Record: r})
	}
	return out
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return len(s.data)
}
