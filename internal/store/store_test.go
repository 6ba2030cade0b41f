package store

import (
	"encoding/json"
	"testing"

	"causalkv/internal/clock"
)

func TestPutThenGet(t *testing.T) {
	s := New()
	vc := clock.VectorClock{"n1": 1}
	s.Put("A", json.RawMessage(`{"name":"x"}`), vc, "n1")

	rec, ok := s.Get("A")
	if !ok {
		t.Fatal("expected record to be present")
	}
	if string(rec.Payload) != `{"name":"x"}` {
		t.Fatalf("unexpected payload: %s", rec.Payload)
	}
	if rec.Origin != "n1" {
		t.Fatalf("unexpected origin: %s", rec.Origin)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := New()
	if _, ok := s.Get("nope"); ok {
		t.Fatal("expected missing key to report not found")
	}
}

func TestPutOverwritesUnconditionally(t *testing.T) {
	s := New()
	s.Put("A", json.RawMessage(`1`), clock.VectorClock{"n1": 1}, "n1")
	s.Put("A", json.RawMessage(`2`), clock.VectorClock{"n1": 1, "n2": 1}, "n2")

	rec, _ := s.Get("A")
	if string(rec.Payload) != "2" || rec.Origin != "n2" {
		t.Fatalf("expected second put to win unconditionally, got %+v", rec)
	}
}

func TestListAndLen(t *testing.T) {
	s := New()
	s.Put("A", json.RawMessage(`1`), clock.VectorClock{"n1": 1}, "n1")
	s.Put("B", json.RawMessage(`2`), clock.VectorClock{"n1": 1}, "n1")

	if s.Len() != 2 {
		t.Fatalf("expected len 2, got %d", s.Len())
	}
	list := s.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}
}
