// ARM64 module relocations and PLT stub encoding
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package module

import (
	"debug/elf"
	"encoding/binary"

	"github.com/usbarmory/virtcore/kernelerr"
)

// callRange is the signed byte displacement reachable by a 26-bit
// word-granular immediate (CALL26/JUMP26): +/- 2^27 bytes, i.e. the
// imm26 field itself spans +/- 2^25 words (spec §4.8).
const callRange = 1 << 27

// ARM64 is the module.Arch implementation for the aarch64 ISA.
type ARM64 struct{}

func (ARM64) Machine() elf.Machine {
	return elf.EM_AARCH64
}

// WritePLTStub encodes a literal-pool indirect branch:
//
//	LDR X16, #8   ; load the absolute target stored right after this stub
//	BR  X16
//	<8 bytes: target>
func (ARM64) WritePLTStub(mem []byte, stubAddr uint64, target uint64) {
	const ldrX16Pc8 = 0x58000050 // LDR X16, [PC, #8]
	const brX16 = 0xD61F0200    // BR X16

	binary.LittleEndian.PutUint32(mem[0:4], ldrX16Pc8)
	binary.LittleEndian.PutUint32(mem[4:8], brX16)
	binary.LittleEndian.PutUint64(mem[8:16], target)
}

func (a ARM64) ApplyRelocations(segment []byte, segmentBase uint64, relocs []Reloc, plt *PLT) error {
	for _, r := range relocs {
		off := r.P - segmentBase
		if off+8 > uint64(len(segment)) && off+4 > uint64(len(segment)) {
			return kernelerr.New(kernelerr.InvalidInput, "module", "ApplyRelocations", "relocation site out of segment")
		}

		switch elf.R_AARCH64(r.Type) {
		case elf.R_AARCH64_ABS64:
			value := r.Symbol + uint64(r.Addend)
			binary.LittleEndian.PutUint64(segment[off:off+8], value)

		case elf.R_AARCH64_CALL26, elf.R_AARCH64_JUMP26:
			target := r.Symbol + uint64(r.Addend)
			disp := int64(target) - int64(r.P)

			if disp >= callRange || disp < -callRange {
				stub, err := plt.Stub(target)
				if err != nil {
					return err
				}
				target = stub
				disp = int64(target) - int64(r.P)
				if disp >= callRange || disp < -callRange {
					return kernelerr.New(kernelerr.InvalidInput, "module", "ApplyRelocations", "PLT stub out of range")
				}
			}

			if disp%4 != 0 {
				return kernelerr.New(kernelerr.InvalidInput, "module", "ApplyRelocations", "misaligned branch target")
			}

			insn := binary.LittleEndian.Uint32(segment[off : off+4])
			imm26 := uint32(disp/4) & 0x03FFFFFF
			insn = (insn &^ 0x03FFFFFF) | imm26
			binary.LittleEndian.PutUint32(segment[off:off+4], insn)

		case elf.R_AARCH64_ADR_PREL_PG_HI21:
			target := r.Symbol + uint64(r.Addend)
			pageDisp := int64(target&^0xFFF) - int64(r.P&^0xFFF)
			pages := pageDisp >> 12

			insn := binary.LittleEndian.Uint32(segment[off : off+4])
			immlo := uint32(pages) & 0x3
			immhi := uint32(pages>>2) & 0x7FFFF
			insn = (insn &^ ((0x3 << 29) | (0x7FFFF << 5))) | (immlo << 29) | (immhi << 5)
			binary.LittleEndian.PutUint32(segment[off:off+4], insn)

		case elf.R_AARCH64_ADD_ABS_LO12_NC:
			target := r.Symbol + uint64(r.Addend)
			imm12 := uint32(target & 0xFFF)

			insn := binary.LittleEndian.Uint32(segment[off : off+4])
			insn = (insn &^ (0xFFF << 10)) | (imm12 << 10)
			binary.LittleEndian.PutUint32(segment[off:off+4], insn)

		default:
			return kernelerr.New(kernelerr.Unsupported, "module", "ApplyRelocations", "unsupported ARM64 relocation type")
		}
	}

	return nil
}

func (ARM64) FlushICache(ranges []ICacheRange) {
	for _, r := range ranges {
		flushICacheRangeARM64(r.Addr, r.Length)
	}
}

// flushICacheRangeARM64 issues DC CVAU/IC IVAU over the range followed by
// DSB ISH and ISB, implemented in assembly in the arm64 board package.
// Declared here so the module loader can depend on it without importing
// arm64 directly; wired via SetICacheFlusher at boot.
var flushICacheRangeARM64 = func(addr uint64, length int) {}

// SetICacheFlusherARM64 installs the real cache-maintenance routine.
func SetICacheFlusherARM64(fn func(addr uint64, length int)) {
	flushICacheRangeARM64 = fn
}
