// SMP bringup
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import "github.com/usbarmory/virtcore/kernelerr"

// FirmwareStarter is the arch capability bridging to the platform
// power-management firmware call used to bring up a secondary CPU: PSCI
// CPU_ON on ARM64, SBI HSM hart_start on RISC-V64.
type FirmwareStarter interface {
	// StartCPU requests the firmware start logical CPU id "cpu" at
	// entry, passing ctxID as the opaque context argument. Returns an
	// error translated from the firmware's negative return code.
	StartCPU(cpu int, entry uintptr, ctxID uintptr) error
}

// BootSecondaries invokes the firmware call once per secondary CPU
// (cpu 0 is the boot CPU and is never targeted), passing entry as the
// address secondaries resume at. Each secondary is expected to run a
// minimal init (set the CPU-local pointer, enable the MMU with the
// shared page tables, enable its local timer and IPI) before entering its
// idle thread.
func (s *Scheduler) BootSecondaries(fw FirmwareStarter, entry uintptr) error {
	for cpu := 1; cpu < s.ncpu; cpu++ {
		if err := fw.StartCPU(cpu, entry, uintptr(cpu)); err != nil {
			return kernelerr.New(kernelerr.Fatal, "sched", "BootSecondaries", err.Error())
		}
	}

	return nil
}

// PSCI CPU_ON function id and return codes (spec §6).
const (
	PSCICPUOnFunctionID = 0xC4000003
	PSCISuccess         = 0
)

// SBI HSM hart_start extension/function ids and return codes (spec §6).
const (
	SBIExtensionHSM  = 0x48534D
	SBIFunctionStart = 0
	SBISuccess       = 0
)
