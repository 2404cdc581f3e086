// RISC-V64 supervisor interrupt routing
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv64

import "github.com/usbarmory/virtcore/sched"

var (
	plic      *PLIC
	scheduler *sched.Scheduler
)

// SetIRQRouting wires the PLIC instance and scheduler consulted by the
// supervisor trap dispatcher; called once during boot after both are
// constructed, installing the cause-based dispatch into
// DefaultSupervisorExceptionHandler via SetSupervisorVector.
func SetIRQRouting(p *PLIC, s *sched.Scheduler) {
	plic = p
	scheduler = s

	SetSupervisorVector(func(cause uint64) {
		cpu := plic.hart

		switch cause {
		case SupervisorTimerInterrupt:
			if scheduler != nil {
				scheduler.Tick(cpu)
			}
			if c := CPUByID(cpu); c != nil {
				c.ArmNextTick()
			}
		case SupervisorSoftwareInterrupt:
			if CLINT != nil {
				CLINT.ClearIPI(plic.hart)
			}
			// no-op otherwise: the pending reschedule is picked up by
			// the scheduler's own return-path check
		default:
			if claimed := plic.Claim(); claimed != 0 {
				plic.Complete(claimed)
			}
		}
	})
}
