// ARM64 processor support
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package arm64 provides the ARMv8-A capability layer backing the
// kernel's arch-neutral packages: MMU bring-up, the GICv3 interrupt
// controller, the generic timer, cache maintenance, PSCI secondary-CPU
// bring-up and the context-switch trampoline.
//
// The following architectures/cores are supported/tested:
//   - ARMv8-A / Cortex-A53 (QEMU `virt`, single and multi-core)
package arm64

// CPU instance, one per core.
type CPU struct {
	ID int

	// TimerMultiplier converts generic timer ticks to nanoseconds.
	TimerMultiplier float64
	TimerOffset     int64

	mpidr uint64
}

// defined in arm64.s
func exit(int32)
func read_mpidr_el1() uint64

// maxCPUs bounds the registry below; QEMU `virt` is not run with more
// cores than this in practice.
const maxCPUs = 8

var cpus [maxCPUs]*CPU

// Init performs the early per-core bring-up: caches the MPIDR affinity
// value, records the logical CPU id assigned by the boot sequence, and
// registers itself so the IRQ vector can recover its CPU from the id
// alone.
func (cpu *CPU) Init(id int) {
	cpu.ID = id
	cpu.mpidr = read_mpidr_el1()

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

// MPIDR returns the affinity register value cached by Init.
func (cpu *CPU) MPIDR() uint64 {
	return cpu.mpidr
}
