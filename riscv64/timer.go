// RISC-V64 CLINT-driven timer and IPI wiring
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv64

import (
	"github.com/usbarmory/virtcore/soc/sifive/clint"
)

// TickIntervalNanos is the preemption tick period, matching arm64's.
const TickIntervalNanos = 10 * 1000 * 1000

// CLINT is the shared controller instance; harts only differ in which
// mtimecmp/MSIP register they target, so a single driver instance is
// passed the target hart per call.
var CLINT *clint.CLINT

// InitCLINT records the CLINT base and counter frequency, shared across
// harts.
func InitCLINT(base uint64, rtcclk uint64) {
	CLINT = &clint.CLINT{Base: base, RTCCLK: rtcclk}
}

// ArmNextTick schedules this hart's next preemption tick.
func (cpu *CPU) ArmNextTick() {
	if CLINT == nil {
		return
	}

	CLINT.SetAlarm(int(cpu.HartID()), CLINT.Nanotime()+TickIntervalNanos)
}

// IPIRouter adapts the CLINT's hart-indexed MSIP send to the scheduler's
// logical-CPU-indexed sched.IPI capability (logical CPU id equals hart id
// on QEMU `virt`'s default `-smp` topology).
type IPIRouter struct{}

func (IPIRouter) SendReschedule(cpu int) {
	if CLINT == nil {
		return
	}

	CLINT.SendIPI(cpu)
}
