// Timer-driven preemption
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import "sync/atomic"

// rescheduleFlags holds one pending-reschedule bit per CPU, set by the
// timer IRQ handler and consumed on return from IRQ.
var rescheduleFlags [MaxCPUs]uint32

// Tick is called from the per-CPU timer IRQ handler. It bumps the
// per-CPU tick counter and raises that CPU's reschedule flag; IRQ
// handlers never block or call Schedule directly (spec §5).
func (s *Scheduler) Tick(cpu int) {
	p := s.CPU(cpu)
	if p == nil {
		return
	}

	p.IncTick()
	atomic.StoreUint32(&rescheduleFlags[cpu], 1)
}

// OnIRQReturn is invoked on the return-from-IRQ path. If a reschedule is
// pending and interrupts were enabled at the preempted site, it invokes
// Schedule; otherwise it is a no-op, deferring preemption until
// interrupts are next enabled.
func (s *Scheduler) OnIRQReturn(cpu int, interruptsWereEnabled bool) {
	if !interruptsWereEnabled {
		return
	}

	if atomic.CompareAndSwapUint32(&rescheduleFlags[cpu], 1, 0) {
		s.Schedule(cpu)
	}
}
