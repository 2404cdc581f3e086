// Synchronization primitive family
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sync implements the kernel's synchronization primitive family:
// Spinlock, Mutex, RwLock, Semaphore, SeqLock and an RCU cell. Spinlock,
// Mutex and RwLock follow scoped acquisition: Lock returns a guard whose
// Unlock method must run on every exit path, and they have no unlock API
// beyond the guard. Semaphore is taken and returned with explicit
// Acquire/Release calls, SeqLock.Write runs a callback between its two
// generation bumps, and an RCU read guard needs no release.
//
// Acquire order is fixed across the kernel (spec §4.5): frame allocator
// -> heap -> scheduler -> VFS. The module loader's PLT table has no lock
// of its own.
package sync

import "runtime"

// Yielder is the scheduler hook this package calls into when a primitive
// needs to give up the CPU rather than spin. It is supplied by the sched
// package at boot (via SetYielder) to avoid an import cycle between sync
// and sched: sched's TCB wait queues are themselves guarded by this
// package's Spinlock.
type Yielder interface {
	// Yield gives up the remainder of the current thread's timeslice.
	Yield()
	// Block parks the current thread until woken, referencing the
	// caller-supplied wait token.
	Block(wait uint64)
	// Wake resumes the thread parked on the given wait token, if any.
	Wake(wait uint64)
}

var yielder Yielder

// SetYielder installs the scheduler hook. Called once during boot before
// any Mutex/RwLock/Semaphore contention can occur.
func SetYielder(y Yielder) {
	yielder = y
}

func yieldNow() {
	if yielder != nil {
		yielder.Yield()
		return
	}

	runtime.Gosched()
}
