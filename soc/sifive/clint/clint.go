// SiFive Core-Local Interruptor (CLINT) driver
// https://github.com/usbarmory/virtcore
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package clint implements a driver for the SiFive Core-Local
// Interruptor (CLINT) block adopting the following reference
// specifications:
//   - FU540C00RM - SiFive FU540-C000 Manual - v1p4 2021/03/25
//
// Besides the mtime/timer functions, this driver also exposes the MSIP
// registers used as the preemptive scheduler's cross-hart reschedule
// doorbell (sched.IPI) on QEMU `virt`.
package clint

import (
	"github.com/usbarmory/virtcore/internal/reg"
)

// CLINT registers (per-hart MSIP are 4 bytes apart starting at 0x0000,
// mtimecmp are 8 bytes apart starting at 0x4000, mtime is shared).
const (
	MSIP      = 0x0000
	MTIMECMP  = 0x4000
	MTIME     = 0xbff8
)

// CLINT represents a Core-Local Interruptor (CLINT) instance.
type CLINT struct {
	// Base register
	Base uint64
	// CPU real time clock
	RTCCLK uint64
	// Timer offset in nanoseconds
	TimerOffset int64
}

// Mtime returns the number of cycles counted from the RTCCLK input.
func (hw *CLINT) Mtime() uint64 {
	return reg.Read64(hw.Base + MTIME)
}

// Nanotime converts the current mtime count to nanoseconds.
func (hw *CLINT) Nanotime() int64 {
	if hw.RTCCLK == 0 {
		return hw.TimerOffset
	}

	return int64(hw.Mtime()*1e9/hw.RTCCLK) + hw.TimerOffset
}

// SetTimer sets the timer to the argument nanoseconds value.
func (hw *CLINT) SetTimer(t int64) {
	hw.TimerOffset = t - hw.Nanotime()
}

// SetAlarm arms hart's mtimecmp register to fire a machine timer
// interrupt at the given absolute nanosecond deadline.
func (hw *CLINT) SetAlarm(hart int, ns int64) {
	if hw.RTCCLK == 0 {
		return
	}

	deadline := uint64((ns - hw.TimerOffset) * int64(hw.RTCCLK) / 1e9)
	reg.Write64(hw.Base+MTIMECMP+uint64(hart)*8, deadline)
}

// SendIPI raises a machine software interrupt on hart via its MSIP bit,
// implementing the reschedule doorbell on RISC-V64.
func (hw *CLINT) SendIPI(hart int) {
	reg.Write64(hw.Base+MSIP+uint64(hart)*4, 1)
}

// ClearIPI clears hart's own MSIP bit, done by the software-interrupt
// handler on receipt.
func (hw *CLINT) ClearIPI(hart int) {
	reg.Write64(hw.Base+MSIP+uint64(hart)*4, 0)
}
