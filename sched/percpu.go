// Per-CPU record
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import "sync/atomic"

// MaxCPUs bounds the compile-time per-CPU record array.
const MaxCPUs = 8

// PerCPU is private to its own CPU except for the few fields accessed
// cross-CPU (TickCount), which go through atomics rather than a lock.
type PerCPU struct {
	CPUID int

	CurrentSlot int
	IdleSlot    int

	TickCount int64

	// InLogging is the per-CPU re-entrancy guard preventing a recursive
	// logging call (e.g. from an allocator failure logged while holding
	// the heap lock) from deadlocking.
	InLogging uint32

	IRQDepth int
}

// IncTick bumps the tick counter; called from the per-CPU timer IRQ
// handler, read cross-CPU by diagnostics (E6).
func (p *PerCPU) IncTick() {
	atomic.AddInt64(&p.TickCount, 1)
}

// Ticks returns the current tick count.
func (p *PerCPU) Ticks() int64 {
	return atomic.LoadInt64(&p.TickCount)
}

// EnterLogging attempts to set the re-entrancy guard, returning false if
// logging is already in progress on this CPU (the caller must drop the
// log line rather than recurse).
func (p *PerCPU) EnterLogging() bool {
	return atomic.CompareAndSwapUint32(&p.InLogging, 0, 1)
}

// ExitLogging clears the re-entrancy guard.
func (p *PerCPU) ExitLogging() {
	atomic.StoreUint32(&p.InLogging, 0)
}

// CPULocal is the arch capability for reading/writing the CPU-local
// pointer register (TPIDR_EL1 on ARM64, tp on RISC-V64).
type CPULocal interface {
	SetCPULocal(ptr uintptr)
	GetCPULocal() uintptr
}

var cpuLocal CPULocal

// SetCPULocalCapability installs the arch capability used to read/write
// the per-CPU pointer register.
func SetCPULocalCapability(c CPULocal) {
	cpuLocal = c
}
