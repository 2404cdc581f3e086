// Thread control block
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sched implements the preemptive, per-CPU kernel-thread
// scheduler: the TCB table, per-CPU records, round-robin selection and
// the handoff-before-switch context switch protocol.
package sched

// State is the lifecycle state of a thread.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// DefaultStackSize is the owned kernel stack size allocated per thread.
const DefaultStackSize = 16 * 1024

// idleTID is reserved for the primary idle thread; tid allocation starts
// at 2.
const idleTID = 1

// AnyCPU is the affinity mask value meaning "no constraint".
const AnyCPU = 0

// Context holds the callee-saved registers, stack pointer and return
// address an arch capability needs to save/restore across a switch. The
// field layout is arch-specific (GPRs differ between LR-based ARM64 and
// RA-based RISC-V64) so it is carried opaquely here as arch-sized
// storage; the arch package interprets it.
type Context struct {
	// SP is the saved stack pointer.
	SP uint64
	// PC/LR or RA is the saved return address.
	PC uint64
	// Callee holds the ISA's callee-saved GPR set, flattened.
	Callee [12]uint64
}

// TCB is a thread control block. TCBs live in one global table, indexed
// by slot; every cross-reference to a thread (wait queues, per-CPU
// current/idle fields) uses that index, never a pointer, so the table is
// the single root of ownership (spec §9).
type TCB struct {
	TID   uint64
	Name  string
	State State

	// Affinity is a CPU bitmask; 0 means "any CPU".
	Affinity uint64

	Ctx Context

	Stack []byte

	// WaitToken identifies the wait queue a Blocked TCB is parked on;
	// zero when not blocked. A Blocked TCB is referenced by exactly one
	// wait queue (its own WaitToken).
	WaitToken uint64

	// entry/arg seed the initial context synthesized for a just-created
	// thread so its first execution enters fn(arg).
	entry func(arg uintptr)
	arg   uintptr
}
