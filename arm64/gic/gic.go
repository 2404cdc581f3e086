// ARM64 Generic Interrupt Controller (GICv3) driver
// https://github.com/usbarmory/virtcore
//
// IP: ARM Generic Interrupt Controller version 3.0
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package gic implements a driver for the ARM Generic Interrupt
// Controller (GICv3), used both as the platform IRQ routing device and,
// via SGI 0, as the scheduler's cross-CPU reschedule doorbell (sched.IPI).
//
// The driver is based on the following reference specifications:
//   - ARM IHI 0069G - ARM GIC Architecture Specification (v3 and v4)
package gic

import (
	"time"

	"github.com/usbarmory/virtcore/internal/reg"
)

// GIC Distributor register map
// (p519, Table 12-25 Distributor register map, ARM IHI 0069G).
const (
	GICD_CTLR       = 0x000
	CTLR_ARE_NS     = 5
	CTLR_ARE_S      = 4
	CTLR_ENABLEGRP0 = 0

	GICD_TYPER    = 0x004
	TYPER_ITLINES = 0

	GICD_IGROUPR   = 0x0080
	GICD_ISENABLER = 0x0100
	GICD_ICENABLER = 0x0180
	GICD_ICPENDR   = 0x0280
	GICD_SGIR      = 0x0F00
	GICD_IROUTER   = 0x6100
)

// GIC Redistributor register map
// (p615, Table 12-27 Redistributor register map, ARM IHI 0069G).
const (
	RD_BASE  = 0x00000
	SGI_BASE = 0x10000

	GICR_WAKER            = RD_BASE + 0x0014
	WAKER_CHILDREN_ASLEEP = 2
	WAKER_PROCESSOR_SLEEP = 1

	GICR_IGROUPR = SGI_BASE + 0x0080
)

const (
	firstSGI = 0    // Software Generated Interrupts (SGI)
	firstPPI = 16   // Private Peripheral Interrupts (PPI)
	firstSPI = 32   // Shared Peripheral Interrupts (SPI)
	firstSIN = 1020 // Special Interrupt Numbers
)

// RescheduleSGI is the software-generated interrupt id reserved for the
// scheduler's cross-CPU reschedule doorbell.
const RescheduleSGI = 0

// GIC represents a Generic Interrupt Controller (GICv3) instance.
type GIC struct {
	// GIC Distributor base address
	GICD uint64
	// GIC Redistributor base address (this core's frame)
	GICR uint64

	mpidr uint64
}

// defined in gic.s
func write_icc_sre_el3(val uint64)
func write_icc_igrpen0_el1(val uint64)
func write_icc_pmr_el1(val uint64)
func read_icc_iar0() uint64
func read_mpidr_el1() uint64
func write_icc_eoir0(val uint64)
func write_icc_sgi0r(val uint64)

// Init initializes a Generic Interrupt Controller (GICv3) instance.
func (hw *GIC) Init() {
	if hw.GICD == 0 || hw.GICR == 0 {
		panic("invalid GIC instance")
	}

	reg.Clear64(hw.GICR+GICR_WAKER, WAKER_PROCESSOR_SLEEP)

	if !reg.WaitFor64(1*time.Second, hw.GICR+GICR_WAKER, WAKER_CHILDREN_ASLEEP, 1, 0) {
		panic("could not wake GICR")
	}

	itLinesNum := reg.GetN64(hw.GICD+GICD_TYPER, TYPER_ITLINES, 0x1f)
	itLinesNum += 1

	for n := uint64(0); n < itLinesNum; n++ {
		reg.Write64(hw.GICD+GICD_ICENABLER+4*n, 0xffffffff)
		reg.Write64(hw.GICD+GICD_ICPENDR+4*n, 0xffffffff)
	}

	write_icc_sre_el3(1)
	write_icc_pmr_el1(0xff)
	write_icc_igrpen0_el1(1)

	reg.Set64(hw.GICD+GICD_CTLR, CTLR_ENABLEGRP0)
	reg.Set64(hw.GICD+GICD_CTLR, CTLR_ARE_NS)
	reg.Set64(hw.GICD+GICD_CTLR, CTLR_ARE_S)

	hw.mpidr = read_mpidr_el1()
}

func (hw *GIC) irq(m int, enable bool) {
	if hw.GICD == 0 {
		return
	}

	var off uint64
	n := uint64(m / 32)
	i := uint64(m % 32)

	if enable {
		if m < firstSPI {
			reg.Clear64(hw.GICR+GICR_IGROUPR+4*n, int(i))
		} else {
			reg.Write64(hw.GICD+GICD_IROUTER+uint64(8*m), hw.mpidr)
			reg.Clear64(hw.GICD+GICD_IGROUPR+4*n, int(i))
		}

		off += GICD_ISENABLER
	} else {
		off += GICD_ICENABLER
	}

	if m < firstSPI {
		reg.SetTo64(hw.GICR+SGI_BASE+off+4*n, int(i), true)
	} else {
		reg.SetTo64(hw.GICD+off+4*n, int(i), true)
	}
}

// EnableInterrupt enables forwarding of the corresponding interrupt to
// the CPU and assigns it to Group0.
func (hw *GIC) EnableInterrupt(id int) {
	hw.irq(id, true)
}

// DisableInterrupt disables forwarding of the corresponding interrupt.
func (hw *GIC) DisableInterrupt(id int) {
	hw.irq(id, false)
}

// GetInterrupt obtains and acknowledges a signaled interrupt.
func (hw *GIC) GetInterrupt() (id int) {
	if hw.GICD == 0 {
		return
	}

	m := read_icc_iar0() & 0xffffff

	if m < firstSIN {
		write_icc_eoir0(m)
	}

	return int(m)
}

// SendReschedule raises RescheduleSGI on the CPU whose affinity is
// targetMPIDR. arm64.IPIRouter calls it to implement sched.IPI, passing
// the MPIDR it derives from the logical CPU index.
func (hw *GIC) SendReschedule(targetMPIDR uint64) {
	aff3 := (targetMPIDR >> 32) & 0xff
	aff2 := (targetMPIDR >> 16) & 0xff
	aff1 := (targetMPIDR >> 8) & 0xff
	aff0 := targetMPIDR & 0xf

	sgi := aff3<<48 | aff2<<32 | aff1<<16 | (uint64(1) << aff0) | uint64(RescheduleSGI)<<24
	write_icc_sgi0r(sgi)
}
