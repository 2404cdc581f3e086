// Spinlock primitive
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sync

import "sync/atomic"

// IRQController is the arch capability a Spinlock needs to implement the
// IRQ-safe variant: disabling and restoring the prior interrupt state.
type IRQController interface {
	// DisableInterrupts masks IRQs and returns the prior enabled state.
	DisableInterrupts() (wasEnabled bool)
	// RestoreInterrupts restores a previously saved interrupt state.
	RestoreInterrupts(wasEnabled bool)
}

var irqController IRQController

// SetIRQController installs the arch capability used by IRQ-safe
// spinlocks. Called once during boot.
func SetIRQController(c IRQController) {
	irqController = c
}

// Spinlock is a busy-wait lock with no payload; the data it protects
// lives beside it in the owning struct (as in sched.Scheduler and
// mem.Heap).
type Spinlock struct {
	state uint32
}

// SpinlockGuard is returned by Lock/LockIRQ; its Unlock releases the
// lock and, for an IRQ-variant guard, restores the saved interrupt state.
type SpinlockGuard struct {
	l          *Spinlock
	irqSave    bool
	wasEnabled bool
}

// Lock busy-waits for the lock without touching interrupt state.
func (l *Spinlock) Lock() SpinlockGuard {
	for !atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		pause()
	}

	return SpinlockGuard{l: l}
}

// LockIRQ busy-waits for the lock after disabling local interrupts; the
// guard restores the prior interrupt state on Unlock.
func (l *Spinlock) LockIRQ() SpinlockGuard {
	wasEnabled := false
	if irqController != nil {
		wasEnabled = irqController.DisableInterrupts()
	}

	for !atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		pause()
	}

	return SpinlockGuard{l: l, irqSave: true, wasEnabled: wasEnabled}
}

// TryLock attempts to acquire without spinning; ok is false if the lock
// was already held.
func (l *Spinlock) TryLock() (SpinlockGuard, bool) {
	if atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		return SpinlockGuard{l: l}, true
	}

	return SpinlockGuard{}, false
}

// Unlock releases the lock and, for an IRQ guard, restores interrupts.
func (g SpinlockGuard) Unlock() {
	if g.l == nil {
		return
	}

	atomic.StoreUint32(&g.l.state, 0)

	if g.irqSave && irqController != nil {
		irqController.RestoreInterrupts(g.wasEnabled)
	}
}

// pause is the busy-loop backoff hint; arch packages may override it with
// a real "pause"/"wfe"-class instruction via SetPause.
var pauseFn func()

// SetPause installs an arch-specific spin-wait hint instruction.
func SetPause(fn func()) {
	pauseFn = fn
}

func pause() {
	if pauseFn != nil {
		pauseFn()
	}
}
