// SBI HSM secondary-hart bring-up
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv64

import (
	"github.com/usbarmory/virtcore/kernelerr"
	"github.com/usbarmory/virtcore/sched"
)

// defined in sbi.s: issues an ECALL with the SBI extension id in a7,
// function id in a6, arguments in a0-a2, returning (error, value) from
// a0/a1 per the SBI calling convention.
func sbi_call(ext, fn, arg0, arg1, arg2 uint64) (int64, int64)

// SBI is the sched.FirmwareStarter implementation using the Supervisor
// Binary Interface's Hart State Management extension, OpenSBI's default
// on QEMU `virt`.
type SBI struct{}

func (SBI) StartCPU(cpu int, entry uintptr, ctxID uintptr) error {
	rc, _ := sbi_call(sched.SBIExtensionHSM, sched.SBIFunctionStart, uint64(cpu), uint64(entry), uint64(ctxID))
	if rc != sched.SBISuccess {
		return kernelerr.New(kernelerr.Fatal, "riscv64", "SBI.StartCPU", "hart_start failed")
	}

	return nil
}
