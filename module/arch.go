// Per-architecture capability for the module loader
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package module

import "debug/elf"

// Reloc is one relocation to apply, with the symbol already resolved to
// an absolute virtual address (S) by the generic loader. For the
// RISC-V *_PCREL_LO12 relocations, Symbol instead carries the virtual
// address of the instruction bearing the paired HI20 relocation, per the
// RISC-V psABI pairing convention; arch packages that do not need this
// simply ignore it.
type Reloc struct {
	// P is the virtual address of the relocation site itself.
	P uint64
	// Type is the ELF relocation type (R_AARCH64_* / R_RISCV_*).
	Type uint32
	// Symbol is the resolved symbol value (S) or, for paired low
	// relocations, the hi-relocation's instruction address.
	Symbol uint64
	// Addend is the explicit addend (A) from the RELA entry.
	Addend int64
}

// ICacheRange is one address range to flush from the instruction cache
// after relocations are applied.
type ICacheRange struct {
	Addr   uint64
	Length int
}

// Arch is the capability the module loader needs from an architecture
// package: knowledge of the expected ELF machine, the PLT stub encoding,
// and the relocation-application logic for that ISA's relocation subset.
type Arch interface {
	// Machine is the expected e_machine value; Load rejects any other.
	Machine() elf.Machine

	// WritePLTStub encodes the fixed 16-byte trampoline at stubAddr
	// (whose backing bytes are mem, PLTEntrySize long) jumping to
	// target.
	WritePLTStub(mem []byte, stubAddr uint64, target uint64)

	// ApplyRelocations patches segment (the full in-memory module
	// image, addressed from segmentBase) for every entry in relocs,
	// routing out-of-range branches through plt.
	ApplyRelocations(segment []byte, segmentBase uint64, relocs []Reloc, plt *PLT) error

	// FlushICache invalidates the instruction cache over the given
	// ranges and issues an architecture-appropriate barrier.
	FlushICache(ranges []ICacheRange)
}
