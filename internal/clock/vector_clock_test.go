package clock

import "testing"

func TestNewZeroesAllMembers(t *testing.T) {
	vc := New([]string{"n1", "n2", "n3"})
	for _, id := range []string{"n1", "n2", "n3"} {
		if vc[id] != 0 {
			t.Fatalf("expected %s to be zero, got %d", id, vc[id])
		}
	}
}

func TestIncrementDoesNotMutateReceiver(t *testing.T) {
	vc := New([]string{"n1", "n2"})
	next := vc.Increment("n1")

	if vc["n1"] != 0 {
		t.Fatalf("original clock mutated: %v", vc)
	}
	if next["n1"] != 1 {
		t.Fatalf("expected incremented clock to have n1=1, got %d", next["n1"])
	}
}

func TestCompareEqual(t *testing.T) {
	a := VectorClock{"n1": 1, "n2": 2}
	b := VectorClock{"n1": 1, "n2": 2}
	if rel := a.Compare(b); rel != Equal {
		t.Fatalf("expected Equal, got %v", rel)
	}
}

func TestCompareLessAndGreater(t *testing.T) {
	a := VectorClock{"n1": 1, "n2": 0}
	b := VectorClock{"n1": 1, "n2": 1}

	if rel := a.Compare(b); rel != Less {
		t.Fatalf("expected Less, got %v", rel)
	}
	if rel := b.Compare(a); rel != Greater {
		t.Fatalf("expected Greater, got %v", rel)
	}
}

func TestCompareConcurrent(t *testing.T) {
	a := VectorClock{"n1": 2, "n2": 0}
	b := VectorClock{"n1": 1, "n2": 1}
	if rel := a.Compare(b); rel != Concurrent {
		t.Fatalf("expected Concurrent, got %v", rel)
	}
}

func TestCompareTreatsMissingEntriesAsZero(t *testing.T) {
	a := VectorClock{"n1": 1}
	b := VectorClock{"n1": 1, "n2": 0}
	if rel := a.Compare(b); rel != Equal {
		t.Fatalf("expected Equal (missing entries are zero), got %v", rel)
	}
}

func TestMerge(t *testing.T) {
	a := VectorClock{"n1": 2, "n2": 0}
	b := VectorClock{"n1": 1, "n2": 3, "n3": 1}

	merged := Merge(a, b)
	want := VectorClock{"n1": 2, "n2": 3, "n3": 1}
	if len(merged) != len(want) {
		t.Fatalf("merged = %v, want %v", merged, want)
	}
	for k, v := range want {
		if merged[k] != v {
			t.Fatalf("merged[%s] = %d, want %d", k, merged[k], v)
		}
	}
}

func TestIncrementOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on counter overflow")
		}
	}()
	vc := VectorClock{"n1": ^uint64(0)}
	vc.Increment("n1")
}
