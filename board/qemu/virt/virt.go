// QEMU virt (ARM64) board module
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package virt registers the board-module fallback constants for the
// QEMU `virt` ARM64 machine class, used by platform.Assemble when the
// device tree is absent or incomplete.
package virt

import "github.com/usbarmory/virtcore/platform"

func init() {
	platform.RegisterBoard(&platform.Board{
		Name:       "qemu-virt-arm64",
		Compatible: []string{"linux,dummy-virt", "arm,virt"},
		Defaults: platform.Config{
			UART: platform.UART{
				Base:  0x09000000,
				IRQ:   33,
				Clock: 24000000,
			},
			GIC: &platform.GIC{
				DistributorBase:  0x08000000,
				CPUInterfaceBase: 0x080a0000,
				Version:          3,
			},
			Timer: platform.Timer{
				Type: "arm-generic",
				Freq: 62500000,
				IRQ:  30,
			},
			CPUCount: 1,
		},
	})
}
