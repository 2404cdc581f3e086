// Mutex primitive
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sync

import (
	"sync/atomic"
	"time"

	"github.com/usbarmory/virtcore/kernelerr"
)

// spinBound is the number of CAS attempts a Mutex makes before yielding
// to the scheduler, trading a short busy-wait for avoiding a context
// switch on briefly-held locks.
const spinBound = 64

// Mutex[T] guards a payload of type T with bounded-spin-then-yield
// semantics. It never holds interrupts disabled.
type Mutex[T any] struct {
	state   uint32
	payload T
}

// NewMutex creates a Mutex initialized with the given payload.
func NewMutex[T any](payload T) *Mutex[T] {
	return &Mutex[T]{payload: payload}
}

// MutexGuard grants access to the protected payload; Unlock releases it.
type MutexGuard[T any] struct {
	m *Mutex[T]
}

// Lock acquires the mutex, spinning briefly and then yielding to the
// scheduler while contended.
func (m *Mutex[T]) Lock() MutexGuard[T] {
	for {
		for i := 0; i < spinBound; i++ {
			if atomic.CompareAndSwapUint32(&m.state, 0, 1) {
				return MutexGuard[T]{m: m}
			}
			pause()
		}

		yieldNow()
	}
}

// TryLock attempts a single non-yielding acquisition.
func (m *Mutex[T]) TryLock() (MutexGuard[T], bool) {
	if atomic.CompareAndSwapUint32(&m.state, 0, 1) {
		return MutexGuard[T]{m: m}, true
	}

	return MutexGuard[T]{}, false
}

// LockTimeout bounds the spin-then-yield acquisition by a wall-clock
// deadline, returning a Busy error on timeout. This is the only primitive
// in the family offering a timed acquisition.
func (m *Mutex[T]) LockTimeout(d time.Duration) (MutexGuard[T], error) {
	deadline := time.Now().Add(d)

	for {
		for i := 0; i < spinBound; i++ {
			if atomic.CompareAndSwapUint32(&m.state, 0, 1) {
				return MutexGuard[T]{m: m}, nil
			}
			pause()
		}

		if time.Now().After(deadline) {
			return MutexGuard[T]{}, kernelerr.New(kernelerr.Busy, "sync", "Mutex.LockTimeout", "timeout")
		}

		yieldNow()
	}
}

// Get returns a pointer to the protected payload; valid only while the
// guard is alive.
func (g MutexGuard[T]) Get() *T {
	return &g.m.payload
}

// Unlock releases the mutex.
func (g MutexGuard[T]) Unlock() {
	if g.m == nil {
		return
	}

	atomic.StoreUint32(&g.m.state, 0)
}
