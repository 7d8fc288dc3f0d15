package citation

import "testing"

func TestInternIsIdempotentAndMonotonic(t *testing.T) {
	r := New()
	if idx := r.Intern("c1"); idx != 1 {
		t.Fatalf("expected first intern to be 1, got %d", idx)
	}
	if idx := r.Intern("c2"); idx != 2 {
		t.Fatalf("expected second intern to be 2, got %d", idx)
	}
	if idx := r.Intern("c1"); idx != 1 {
		t.Fatalf("expected repeat intern of c1 to stay 1, got %d", idx)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 distinct entries, got %d", r.Len())
	}
}

func TestLookupReportsAbsence(t *testing.T) {
	r := New()
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("expected lookup miss")
	}
	r.Intern("c1")
	if idx, ok := r.Lookup("c1"); !ok || idx != 1 {
		t.Fatalf("expected hit idx=1, got %d ok=%v", idx, ok)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	r := New()
	r.Intern("c1")
	r.Intern("c2")
	r.Intern("c3")
	snap := r.Snapshot()

	r2 := Restore(snap)
	if r2.Len() != 3 {
		t.Fatalf("expected 3 entries after restore, got %d", r2.Len())
	}
	for i, id := range []string{"c1", "c2", "c3"} {
		idx, ok := r2.Lookup(id)
		if !ok || idx != i+1 {
			t.Fatalf("expected %s -> %d, got %d ok=%v", id, i+1, idx, ok)
		}
	}
	// Interning an already-known id after restore must not change its index.
	if idx := r2.Intern("c2"); idx != 2 {
		t.Fatalf("expected c2 to stay at index 2 after restore, got %d", idx)
	}
	// A new id continues the sequence from the restored length.
	if idx := r2.Intern("c4"); idx != 4 {
		t.Fatalf("expected new id to get index 4, got %d", idx)
	}
}
