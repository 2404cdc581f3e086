// RISC-V 64-bit processor support
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package riscv64 provides the RV64 capability layer backing the
// kernel's arch-neutral packages: Sv39 MMU bring-up, PLIC/CLINT, the
// CLINT mtime/mtimecmp timer, SBI HSM secondary-hart bring-up and the
// context-switch trampoline.
//
// The following cores are supported/tested:
//   - RV64GC (QEMU `virt`, single and multi-hart)
package riscv64

// CPU instance, one per hart.
type CPU struct {
	ID int
}

// defined in riscv64.s
func exit(int32)
func read_mhartid() uint64
func wfi()

// EnableInterrupts sets SIE (supervisor interrupt enable) and unmasks
// the timer/software interrupt sources this hart uses.
func (cpu *CPU) EnableInterrupts() {
	set_sie()
}

// WaitInterrupt suspends execution until an interrupt is received.
func (cpu *CPU) WaitInterrupt() {
	wfi()
}

// defined in riscv64.s
func set_sie() // sets sstatus.SIE and sie.{STIE,SSIE}
func clear_sie() bool // clears sstatus.SIE, returns its prior value

// IRQController implements sync.IRQController via sstatus.SIE: a single
// global implementation, since reading/disabling/restoring the interrupt
// mask only ever affects the calling hart.
type IRQController struct{}

// DisableInterrupts masks interrupt delivery and reports whether
// interrupts were enabled beforehand, so RestoreInterrupts can undo
// exactly this critical section and no more.
func (IRQController) DisableInterrupts() bool {
	return clear_sie()
}

// RestoreInterrupts re-enables interrupt delivery only if it was enabled
// at the matching DisableInterrupts call.
func (IRQController) RestoreInterrupts(wasEnabled bool) {
	if wasEnabled {
		set_sie()
	}
}

// maxCPUs bounds the registry below; QEMU `virt` is not run with more
// harts than this in practice.
const maxCPUs = 8

var cpus [maxCPUs]*CPU

// Init records the logical CPU id assigned by the boot sequence and
// registers itself so the trap dispatcher can recover its CPU from the
// id alone.
func (cpu *CPU) Init(id int) {
	cpu.ID = id

	if id < maxCPUs {
		cpus[id] = cpu
	}
}

// CPUByID returns the registered CPU for a logical id, or nil if Init was
// never called for it.
func CPUByID(id int) *CPU {
	if id < 0 || id >= maxCPUs {
		return nil
	}

	return cpus[id]
}

// HartID returns the hardware hart id, used as SBI HSM's target hart
// argument.
func (cpu *CPU) HartID() uint64 {
	return read_mhartid()
}
