// RISC-V 64-bit exception handling
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv64

import (
	"unsafe"

	"github.com/usbarmory/virtcore/internal/exception"
)

// RISC-V exception codes (non-interrupt)
// (Table 3.6 - Volume II: RISC-V Privileged Architectures V20211203).
const (
	InstructionAddressMisaligned = 0
	InstructionAccessFault       = 1
	IllegalInstruction           = 2
	Breakpoint                   = 3
	LoadAddressMisaligned        = 4
	LoadAccessFault              = 5
	StoreAddressMisaligned       = 6
	StoreAccessFault             = 7
	EnvironmentCallFromU         = 8
	EnvironmentCallFromS         = 9
	EnvironmentCallFromM         = 11
	InstructionPageFault         = 12
	LoadPageFault                = 13
	StorePageFault               = 15
)

// SupervisorTimerInterrupt is scause's interrupt code for the supervisor
// timer interrupt (the CLINT-driven preemption tick, routed via SIP/SIE).
const SupervisorTimerInterrupt = 5

// SupervisorSoftwareInterrupt is scause's interrupt code for the CLINT
// MSIP-generated reschedule doorbell.
const SupervisorSoftwareInterrupt = 1

// defined in exception.s
func set_mtvec(addr uint64)
func set_stvec(addr uint64)
func read_mepc() uint64
func read_sepc() uint64
func read_mcause() uint64
func read_scause() uint64

type ExceptionHandler func()

func vector(fn ExceptionHandler) uint64 {
	return **((**uint64)(unsafe.Pointer(&fn)))
}

const xlen = 64

// DefaultExceptionHandler handles a machine-mode trap by printing the
// cause before unwinding.
func DefaultExceptionHandler() {
	mcause := read_mcause()
	size := xlen - 1

	irq := int(mcause >> size)
	code := int(mcause) & ^(1 << size)

	print("machine exception: interrupt ", irq, " code ", code, "\n")
	exception.Throw(uintptr(read_mepc()))
}

var supervisorVector func(cause uint64)

// SetSupervisorVector installs the supervisor-mode trap dispatcher,
// called from boot once the scheduler and PLIC/CLINT are wired.
func SetSupervisorVector(fn func(cause uint64)) {
	supervisorVector = fn
}

// DefaultSupervisorExceptionHandler dispatches interrupts to the
// installed supervisorVector, or unwinds on an unhandled exception.
func DefaultSupervisorExceptionHandler() {
	scause := read_scause()
	size := xlen - 1

	if scause>>size == 1 {
		if supervisorVector != nil {
			supervisorVector(scause & ^(uint64(1) << size))
			return
		}
	}

	print("supervisor exception: pc ", int(read_sepc()), " scause ", scause, "\n")
	panic("unhandled exception")
}

// SetExceptionHandler updates the machine-mode trap vector.
func (cpu *CPU) SetExceptionHandler(fn ExceptionHandler) {
	set_mtvec(vector(fn))
}

// SetSupervisorExceptionHandler updates the supervisor-mode trap vector.
func (cpu *CPU) SetSupervisorExceptionHandler(fn ExceptionHandler) {
	set_stvec(vector(fn))
}
