package txqueue

import "testing"

type fakeEntry struct{ id uint64 }

func (e fakeEntry) TxID() uint64 { return e.id }

func TestPushWithinCapacityDoesNotEvict(t *testing.T) {
	var evicted []fakeEntry
	q := New[fakeEntry](3, func(e fakeEntry) { evicted = append(evicted, e) })

	q.Push(fakeEntry{1})
	q.Push(fakeEntry{2})
	q.Push(fakeEntry{3})

	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	if len(evicted) != 0 {
		t.Errorf("expected no evictions, got %v", evicted)
	}
}

func TestPushOverCapacityEvictsOldest(t *testing.T) {
	var evicted []fakeEntry
	q := New[fakeEntry](2, func(e fakeEntry) { evicted = append(evicted, e) })

	q.Push(fakeEntry{1})
	q.Push(fakeEntry{2})
	q.Push(fakeEntry{3})

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	if len(evicted) != 1 || evicted[0].id != 1 {
		t.Errorf("evicted = %v, want [{1}]", evicted)
	}
	if got, _ := q.At(0); got.id != 2 {
		t.Errorf("oldest remaining = %d, want 2", got.id)
	}
}

func TestPushNeverEvictsLastAskedTransaction(t *testing.T) {
	q := New[fakeEntry](2, nil)
	q.Push(fakeEntry{1})
	q.Push(fakeEntry{2})

	// Host inspects tx 1, protecting it from the next eviction.
	if _, ok := q.At(0); !ok {
		t.Fatal("At(0) should find tx 1")
	}

	q.Push(fakeEntry{3})

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	found1 := false
	for _, e := range q.All() {
		if e.id == 1 {
			found1 = true
		}
	}
	if !found1 {
		t.Error("tx 1 was evicted despite being the last one the host asked for")
	}
}

func TestAtOutOfRange(t *testing.T) {
	q := New[fakeEntry](2, nil)
	q.Push(fakeEntry{1})

	if _, ok := q.At(5); ok {
		t.Error("At(5) should report not found")
	}
	if _, ok := q.At(-1); ok {
		t.Error("At(-1) should report not found")
	}
}

func TestLastReturnsMostRecent(t *testing.T) {
	q := New[fakeEntry](4, nil)
	q.Push(fakeEntry{1})
	q.Push(fakeEntry{2})

	got, ok := q.Last()
	if !ok || got.id != 2 {
		t.Errorf("Last() = %+v, %v; want {2}, true", got, ok)
	}
}

func TestLastOnEmptyQueue(t *testing.T) {
	q := New[fakeEntry](4, nil)
	if _, ok := q.Last(); ok {
		t.Error("Last() on empty queue should report not found")
	}
}

func TestFreeRemovesById(t *testing.T) {
	q := New[fakeEntry](4, nil)
	q.Push(fakeEntry{1})
	q.Push(fakeEntry{2})

	if !q.Free(1) {
		t.Fatal("Free(1) should succeed")
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
	if q.Free(99) {
		t.Error("Free(99) should report not found")
	}
}

func TestFreeDoesNotInvokeOnEvict(t *testing.T) {
	var evicted []fakeEntry
	q := New[fakeEntry](4, func(e fakeEntry) { evicted = append(evicted, e) })
	q.Push(fakeEntry{1})

	q.Free(1)

	if len(evicted) != 0 {
		t.Errorf("Free should not trigger onEvict, got %v", evicted)
	}
}

func TestResetClearsQueue(t *testing.T) {
	q := New[fakeEntry](4, nil)
	q.Push(fakeEntry{1})
	q.Push(fakeEntry{2})

	q.Reset()

	if q.Len() != 0 {
		t.Errorf("Len() = %d after Reset, want 0", q.Len())
	}
}
