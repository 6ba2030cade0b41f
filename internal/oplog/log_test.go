package oplog

import "testing"

func TestAppendAndHas(t *testing.T) {
	l := New()
	op := Operation{OpID: "n1-1", Kind: KindCreate, Key: "A"}

	if l.Has(op.OpID) {
		t.Fatal("expected op to be absent before append")
	}
	l.Append(op)
	if !l.Has(op.OpID) {
		t.Fatal("expected op to be present after append")
	}
	if l.Len() != 1 {
		t.Fatalf("expected len 1, got %d", l.Len())
	}
}

func TestSnapshotPreservesOrderAndIsACopy(t *testing.T) {
	l := New()
	l.Append(Operation{OpID: "a"})
	l.Append(Operation{OpID: "b"})
	l.Append(Operation{OpID: "c"})

	snap := l.Snapshot()
	if len(snap) != 3 || snap[0].OpID != "a" || snap[1].OpID != "b" || snap[2].OpID != "c" {
		t.Fatalf("unexpected snapshot order: %+v", snap)
	}

	snap[0].OpID = "mutated"
	if l.Snapshot()[0].OpID != "a" {
		t.Fatal("mutating a snapshot must not affect the log")
	}
}
