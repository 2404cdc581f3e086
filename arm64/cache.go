// ARM64 cache maintenance
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import "github.com/usbarmory/virtcore/module"

func init() {
	module.SetICacheFlusherARM64(func(addr uint64, length int) {
		icache_invalidate_range(addr, uint64(length))
	})
}

// defined in cache.s
func cache_enable()
func cache_disable()
func icache_invalidate_range(addr uint64, length uint64)

// EnableCache activates the ARM64 instruction and data caches.
func (cpu *CPU) EnableCache() {
	cache_enable()
}

// DisableCache disables the ARM64 instruction and data caches.
func (cpu *CPU) DisableCache() {
	cache_disable()
}

// FlushTLBs flushes the translation lookaside buffers.
func (cpu *CPU) FlushTLBs() {
	flush_tlb()
}
