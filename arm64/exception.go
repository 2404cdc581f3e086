// ARM64 exception handling
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import (
	"unsafe"

	"github.com/usbarmory/virtcore/arm64/gic"
	"github.com/usbarmory/virtcore/internal/exception"
	"github.com/usbarmory/virtcore/sched"
)

var (
	vecTableStart uint64
	isThrowing    bool

	controller *gic.GIC
	scheduler  *sched.Scheduler
)

// defined in exception.s
func set_vbar(addr uint64)
func read_el() uint64

type ExceptionHandler func()

func vector(fn ExceptionHandler) uint64 {
	return **((**uint64)(unsafe.Pointer(&fn)))
}

// DefaultExceptionHandler handles a synchronous exception by printing its
// exception level before unwinding via internal/exception.
func DefaultExceptionHandler(pc uintptr) {
	if isThrowing {
		exit(0)
	}

	isThrowing = true

	print("EL", int(read_el()&0b1100)>>2, " exception\n")
	exception.Throw(pc)
}

var SystemExceptionHandler = DefaultExceptionHandler

func systemException(pc uintptr) {
	SystemExceptionHandler(pc)
}

// InitVectorTable points VBAR_EL1 at the exception vector table at vbar,
// or at vecTableStart instead when that is non-zero.
func (cpu *CPU) InitVectorTable(vbar uint64) {
	if vecTableStart != 0 {
		vbar = vecTableStart
	}
	set_vbar(vbar)
}

// SetIRQRouting wires the GIC instance and scheduler consulted by the IRQ
// vector handler; called once during boot after both are constructed.
func SetIRQRouting(g *gic.GIC, s *sched.Scheduler) {
	controller = g
	scheduler = s
}

// irqVector is called from the VBAR_EL1 IRQ entry (defined in
// exception.s) once general-purpose registers are saved. It acknowledges
// the interrupt, dispatches the timer tick or reschedule SGI, and returns
// so the assembly epilogue can decide whether to invoke the scheduler
// before the exception return.
func irqVector(cpu int) {
	if controller == nil {
		return
	}

	id := controller.GetInterrupt()

	switch {
	case id == TIMER_IRQ:
		if scheduler != nil {
			scheduler.Tick(cpu)
		}
		if c := CPUByID(cpu); c != nil {
			c.ArmNextTick()
		}
	case id == gic.RescheduleSGI:
		// no-op: the pending reschedule is picked up by OnIRQReturn
	}
}
