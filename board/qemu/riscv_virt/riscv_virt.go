// QEMU virt (RISC-V64) board module
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package riscv_virt registers the board-module fallback constants for
// the QEMU `virt` RISC-V64 machine class, used by platform.Assemble when
// the device tree is absent or incomplete.
package riscv_virt

import "github.com/usbarmory/virtcore/platform"

func init() {
	platform.RegisterBoard(&platform.Board{
		Name:       "qemu-virt-riscv64",
		Compatible: []string{"riscv-virtio"},
		Defaults: platform.Config{
			UART: platform.UART{
				Base:  0x10000000,
				IRQ:   10,
				Clock: 3686400,
			},
			PLIC: &platform.PLIC{
				Base:        0x0c000000,
				Size:        0x04000000,
				NumSources:  127,
				NumContexts: 2,
			},
			CLINT: &platform.CLINT{
				Base: 0x02000000,
				Size: 0x00010000,
			},
			Timer: platform.Timer{
				Type: "riscv-clint",
				Freq: 10000000,
			},
			CPUCount: 1,
		},
	})
}
