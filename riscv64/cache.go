// RISC-V64 instruction cache maintenance
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv64

import "github.com/usbarmory/virtcore/module"

func init() {
	module.SetICacheFlusherRISCV64(func(addr uint64, length int) {
		fence_i()
	})
}

// defined in cache.s: FENCE.I, which synchronizes the instruction and
// data streams on the local hart. RISC-V's base ISA has no range-scoped
// icache invalidation, so module loads always flush in full.
func fence_i()
