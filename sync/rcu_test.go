package sync

import "testing"

type fakeTracker struct {
	gen       uint64
	allPassed bool
}

func (f *fakeTracker) Generation() uint64 {
	return f.gen
}

func (f *fakeTracker) AllPassed(gen uint64) bool {
	return f.allPassed
}

func TestRCUReaderObservesOldThroughUpdate(t *testing.T) {
	tracker := &fakeTracker{gen: 1}
	SetQuiescenceTracker(tracker)
	defer SetQuiescenceTracker(nil)

	oldVal := 1
	r := NewRCU(&oldVal)

	guard := r.Read()
	if *guard.Get() != 1 {
		t.Fatalf("pre-update read: got %d want 1", *guard.Get())
	}

	newVal := 2
	r.Update(&newVal)

	// The guard acquired before Update still observes the old value:
	// RCU readers are unaffected by a concurrent publish.
	if *guard.Get() != 1 {
		t.Fatalf("post-update guard: got %d want 1 (stale read broken)", *guard.Get())
	}

	// A fresh read observes the new value.
	if v := *r.Read().Get(); v != 2 {
		t.Fatalf("fresh read: got %d want 2", v)
	}

	// Grace period not yet complete: the old value must still be
	// pending, not reclaimed.
	if len(r.pending) != 1 {
		t.Fatalf("pending: got %d want 1 before grace period completes", len(r.pending))
	}

	tracker.allPassed = true
	r.Reclaim()

	if len(r.pending) != 0 {
		t.Fatalf("pending: got %d want 0 after grace period completes", len(r.pending))
	}
}

func TestRCUReclaimsImmediatelyWithoutTracker(t *testing.T) {
	SetQuiescenceTracker(nil)

	oldVal := "a"
	r := NewRCU(&oldVal)

	newVal := "b"
	r.Update(&newVal)

	if len(r.pending) != 0 {
		t.Fatalf("pending: got %d want 0 with no installed tracker", len(r.pending))
	}
}
