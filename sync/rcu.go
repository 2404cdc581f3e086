// RCU cell primitive
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sync

import (
	"sync/atomic"
)

// QuiescenceTracker reports, per CPU, whether it has passed through a
// quiescent point (scheduler entry, per spec §4.5) since a given
// generation was recorded. The scheduler package implements this.
type QuiescenceTracker interface {
	// Generation returns the current global RCU generation counter.
	Generation() uint64
	// AllPassed reports whether every CPU has passed through a
	// quiescent point at or after gen.
	AllPassed(gen uint64) bool
}

var quiescence QuiescenceTracker

// SetQuiescenceTracker installs the scheduler hook used to determine
// grace-period completion. Called once during boot.
func SetQuiescenceTracker(q QuiescenceTracker) {
	quiescence = q
}

// RCU[T] lets writers swap a new value pointer while readers hold a read
// guard; readers are lock-free and observe either the pre- or
// post-update value, consistently, for the lifetime of their guard. The
// replaced value is deferred-freed only after a grace period (every CPU
// has passed a quiescent point following the swap).
type RCU[T any] struct {
	ptr atomic.Pointer[T]

	mu      Spinlock
	pending []pendingFree[T]
}

type pendingFree[T any] struct {
	value *T
	gen   uint64
}

// NewRCU creates an RCU cell holding the given initial value.
func NewRCU[T any](initial *T) *RCU[T] {
	r := &RCU[T]{}
	r.ptr.Store(initial)
	return r
}

// ReadGuard pins the value observed at acquisition time; the reader must
// not retain the pointer beyond the guard's lifetime.
type ReadGuard[T any] struct {
	value *T
}

// Read acquires a read guard over the currently published value.
func (r *RCU[T]) Read() ReadGuard[T] {
	return ReadGuard[T]{value: r.ptr.Load()}
}

// Get returns the pinned value.
func (g ReadGuard[T]) Get() *T {
	return g.value
}

// Update publishes newValue and schedules the previous value for
// reclamation once a grace period has elapsed. If no QuiescenceTracker is
// installed (e.g. in host-side unit tests), the previous value is
// reclaimed immediately since there are no concurrent readers to race.
func (r *RCU[T]) Update(newValue *T) {
	old := r.ptr.Swap(newValue)
	if old == nil {
		return
	}

	if quiescence == nil {
		return
	}

	gen := quiescence.Generation()

	g := r.mu.Lock()
	r.pending = append(r.pending, pendingFree[T]{value: old, gen: gen})
	g.Unlock()

	r.reclaim()
}

// reclaim drops any pending values whose grace period has completed.
// Called opportunistically on Update and may also be driven by a periodic
// scheduler hook.
func (r *RCU[T]) reclaim() {
	g := r.mu.Lock()
	defer g.Unlock()

	kept := r.pending[:0]
	for _, p := range r.pending {
		if quiescence != nil && quiescence.AllPassed(p.gen) {
			continue
		}
		kept = append(kept, p)
	}
	r.pending = kept
}

// Reclaim runs a reclamation pass; exported so the scheduler's idle path
// can drive grace-period completion independent of writer activity.
func (r *RCU[T]) Reclaim() {
	r.reclaim()
}
