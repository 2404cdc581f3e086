// ARMv8-A MMU bring-up
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import "unsafe"

// Long-descriptor format fields (ARM DDI 0487, D5.3).
const (
	descValid = 1 << 0
	descBlock = 0 << 1 // level 1/2 block descriptor (bit[1] clear)

	descAF = 1 << 10 // access flag, set to avoid an access-flag fault on first touch
	descSH = 3 << 8  // inner shareable

	descAttrIndxShift = 2
	descUXN           = 1 << 54
	descPXN           = 1 << 53
)

// MAIR_EL1 attribute indices programmed by initMAIR.
const (
	attrNormal = 0 // inner/outer write-back, non-transient
	attrDevice = 1 // device-nGnRnE
)

const mairValue = uint64(0xFF)<<(attrNormal*8) | uint64(0x00)<<(attrDevice*8)

// l1Entries is the number of 1 GiB block descriptors at the first level
// of a 4 KiB-granule, 3-level walk (enough to span 512 GiB).
const l1Entries = 512

const gib = 1 << 30

// defined in mmu.s
func write_mair_el1(val uint64)
func write_tcr_el1(val uint64)
func write_ttbr0_el1(addr uint64)
func flush_tlb()
func enable_mmu()

// InitMMU builds a flat (identity) mapping of the whole 512 GiB input
// address space using 1 GiB block descriptors: blocks inside RAM are
// normal memory, every other block is device memory
// (spec §2's "identity mapping of detected RAM plus discovered MMIO
// ranges"). Block granularity means memory protection is coarse -
// RAM blocks are mapped executable; per-page .text/.rodata/.data/.bss
// protection is instead enforced by the module loader's own bounds
// checks, not by page table permissions.
func InitMMU(l1Table []uint64, ramBase, ramEnd uint64) {
	if len(l1Table) < l1Entries {
		panic("arm64: L1 table too small")
	}

	for i := 0; i < l1Entries; i++ {
		base := uint64(i) * gib

		var entry uint64

		switch {
		case base >= ramBase && base < ramEnd:
			entry = base | descValid | descBlock | descSH | descAF |
				(attrNormal << descAttrIndxShift)
		default:
			entry = base | descValid | descBlock | descSH | descAF |
				(attrDevice << descAttrIndxShift) | descUXN | descPXN
		}

		l1Table[i] = entry
	}

	write_mair_el1(mairValue)
	write_tcr_el1(tcrValue())
	write_ttbr0_el1(uint64(tableAddr(l1Table)))
	flush_tlb()
	enable_mmu()
}

// tcrValue configures TCR_EL1 for a 4 KiB granule, 39-bit (512 GiB)
// input address space, matching l1Entries.
func tcrValue() uint64 {
	const t0sz = 64 - 39 // 39-bit VA, 3-level walk with 1 GiB L1 blocks
	return uint64(t0sz)
}

func tableAddr(t []uint64) uint64 {
	return uint64(uintptr(unsafe.Pointer(&t[0])))
}
