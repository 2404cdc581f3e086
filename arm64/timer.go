// ARM64 Generic Timer
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import (
	"math"

	"github.com/usbarmory/virtcore/internal/reg"
)

// Generic timer register constants (ARM DDI 0487, D11.2).
const (
	CNTCR   = 0
	CNTFID0 = 0x20

	CNTCR_FCREQ = 8
	CNTCR_HDBG  = 1
	CNTCR_EN    = 0

	CNTKCTL_PL0PCTEN = 0

	refFreq int64 = 1e9
)

// TIMER_IRQ is the PPI line QEMU `virt`'s arm,armv8-timer node wires the
// non-secure physical timer to (platform.Timer carries this per-board).
const TIMER_IRQ = 30

// defined in timer.s
func read_cntfrq() uint32
func write_cntfrq(freq uint32)
func write_cntkctl(val uint32)
func read_cntpct() uint64
func write_cntptval(val uint32, enable bool)

// InitGenericTimers programs the system counter frame at base to the
// given frequency (if non-zero) and grants EL0 counter read access.
func (cpu *CPU) InitGenericTimers(base uint64, freq uint32) {
	if freq != 0 {
		write_cntfrq(freq)

		if base != 0 {
			reg.Write64(base+CNTFID0, uint64(freq))
			reg.Set64(base+CNTCR, CNTCR_FCREQ)
			reg.Set64(base+CNTCR, CNTCR_HDBG)
			reg.Set64(base+CNTCR, CNTCR_EN)
		}

		write_cntkctl(1 << CNTKCTL_PL0PCTEN)
	}

	cpu.TimerMultiplier = float64(refFreq) / float64(read_cntfrq())
}

// Counter returns the CPU Counter-timer Physical Count (CNTPCT).
func (cpu *CPU) Counter() uint64 {
	return read_cntpct()
}

// GetTime returns the system time in nanoseconds.
func (cpu *CPU) GetTime() int64 {
	return int64(float64(cpu.Counter())*cpu.TimerMultiplier) + cpu.TimerOffset
}

// SetTime adjusts the system time to the argument nanoseconds value.
func (cpu *CPU) SetTime(ns int64) {
	if cpu.TimerMultiplier == 0 {
		return
	}

	cpu.TimerOffset = ns - int64(float64(read_cntpct())*cpu.TimerMultiplier)
}

// SetAlarm arms the physical timer to fire at the given absolute
// nanosecond deadline, or disarms it when ns is zero. The preemption tick
// re-arms the alarm for the next tick period from its own IRQ handler.
func (cpu *CPU) SetAlarm(ns int64) {
	if ns == 0 {
		write_cntptval(0, false)
		return
	}

	if cpu.TimerMultiplier == 0 {
		return
	}

	set := uint64(ns) / uint64(cpu.TimerMultiplier)
	now := read_cntpct()
	cnt := set - now

	if set <= now {
		cnt = 1
	} else if cnt > math.MaxInt32 {
		cnt = math.MaxInt32
	}

	write_cntptval(uint32(cnt), true)
}

// TickIntervalNanos is the fixed preemption quantum (spec §4.6).
const TickIntervalNanos = 10 * 1000 * 1000 // 10ms

// ArmNextTick schedules the next preemption tick TickIntervalNanos from
// now, called by the timer IRQ handler to keep the periodic tick alive.
func (cpu *CPU) ArmNextTick() {
	cpu.SetAlarm(cpu.GetTime() + TickIntervalNanos)
}
