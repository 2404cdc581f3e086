// PSCI secondary-CPU bring-up
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import (
	"github.com/usbarmory/virtcore/arm64/gic"
	"github.com/usbarmory/virtcore/kernelerr"
	"github.com/usbarmory/virtcore/sched"
)

// defined in psci.s: issues the SMC64 conduit call with the PSCI function
// id in x0, target_cpu/entry_point/context_id in x1-x3, returning x0.
func smc_call(function, arg1, arg2, arg3 uint64) int64

// PSCI is the sched.FirmwareStarter implementation targeting QEMU
// `virt`'s default PSCI SMC conduit.
type PSCI struct{}

func (PSCI) StartCPU(cpu int, entry uintptr, ctxID uintptr) error {
	target := cpuMPIDR(cpu)

	rc := smc_call(sched.PSCICPUOnFunctionID, target, uint64(entry), uint64(ctxID))
	if rc != sched.PSCISuccess {
		return kernelerr.New(kernelerr.Fatal, "arm64", "PSCI.StartCPU", "CPU_ON failed")
	}

	return nil
}

// cpuMPIDR maps a logical CPU index to the MPIDR_EL1.Aff0 value QEMU
// `virt` assigns it (cores are numbered sequentially in Aff0 with
// Aff1-3 zero, per QEMU's default `-smp` topology).
func cpuMPIDR(cpu int) uint64 {
	return uint64(cpu)
}

// IPIRouter adapts the GIC's MPIDR-addressed SGI send to the scheduler's
// logical-CPU-indexed sched.IPI capability.
type IPIRouter struct {
	GIC *gic.GIC
}

func (r IPIRouter) SendReschedule(cpu int) {
	r.GIC.SendReschedule(cpuMPIDR(cpu))
}
