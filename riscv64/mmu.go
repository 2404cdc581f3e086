// Sv39 MMU bring-up
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv64

import "unsafe"

// Sv39 PTE flags (RISC-V Privileged Architecture, 4.4).
const (
	pteV = 1 << 0 // valid
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6 // accessed, set to avoid a first-touch fault
	pteD = 1 << 7 // dirty, set likewise

	ptePPNShift = 10
)

// l2Entries is the number of 1 GiB gigapage descriptors at the root
// (level 2) of a Sv39 3-level walk (covers 512 GiB).
const l2Entries = 512

const gib = 1 << 30

// satpModeSv39 is SATP.MODE for Sv39 paging.
const satpModeSv39 = uint64(8) << 60

// defined in mmu.s
func write_satp(val uint64)
func sfence_vma()

// InitMMU builds a flat (identity) mapping of the whole 512 GiB Sv39
// address space using 1 GiB gigapage leaf PTEs at the root level:
// gigapages inside RAM are readable, writable and executable, every
// other gigapage is readable and writable but not executable. As with
// arm64's InitMMU, no per-section .text/.rodata/.data/.bss protection is
// applied.
func InitMMU(rootTable []uint64, ramBase, ramEnd uint64) {
	if len(rootTable) < l2Entries {
		panic("riscv64: Sv39 root table too small")
	}

	for i := 0; i < l2Entries; i++ {
		base := uint64(i) * gib
		ppn := base >> 12

		var entry uint64

		switch {
		case base >= ramBase && base < ramEnd:
			entry = (ppn << ptePPNShift) | pteV | pteR | pteW | pteX | pteA | pteD | pteG
		default:
			// Device region: no X, matching arm64's UXN/PXN device mapping.
			entry = (ppn << ptePPNShift) | pteV | pteR | pteW | pteA | pteD | pteG
		}

		rootTable[i] = entry
	}

	satp := satpModeSv39 | (tableAddr(rootTable) >> 12)
	write_satp(satp)
	sfence_vma()
}

func tableAddr(t []uint64) uint64 {
	return uint64(uintptr(unsafe.Pointer(&t[0])))
}
