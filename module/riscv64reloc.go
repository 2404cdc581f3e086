// RISC-V64 module relocations and PLT stub encoding
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

// callRangeRISCV is the signed byte displacement reachable by the
// AUIPC+JALR CALL/CALL_PLT pair: +/- 2^31 bytes (spec §4.8).
const callRangeRISCV = int64(1) << 31

// RISCV64 is the module.Arch implementation for the rv64 ISA.
type RISCV64 struct{}

func (RISCV64) Machine() elf.Machine {
	return elf.EM_RISCV
}

// WritePLTStub encodes a tail-call AUIPC+JALR pair jumping pc-relative
// from stubAddr to target, plus the absolute target address (unused at
// execution time, kept for introspection/debugging):
//
//	AUIPC t1, hi20(target-stub)
//	JALR  x0, lo12(target-stub)(t1)
//	<8 bytes: target>
func (RISCV64) WritePLTStub(mem []byte, stubAddr uint64, target uint64) {
	encodeAUIPCJALR(mem, stubAddr, target)
	binary.LittleEndian.PutUint64(mem[8:16], target)
}

// encodeAUIPCJALR writes the AUIPC+JALR pair at stubAddr jumping to target.
func encodeAUIPCJALR(mem []byte, stubAddr, target uint64) {
	disp := int64(target) - int64(stubAddr)

	hi20, lo12 := splitHiLo(disp)

	const t1 = 6
	const zero = 0

	auipc := (uint32(hi20) << 12) | (t1 << 7) | 0x17
	jalr := (uint32(int32(lo12)) << 20) | (t1 << 15) | (0 << 12) | (zero << 7) | 0x67

	binary.LittleEndian.PutUint32(mem[0:4], auipc)
	binary.LittleEndian.PutUint32(mem[4:8], jalr)
}

// splitHiLo computes the RISC-V psABI hi20/lo12 split of a PC-relative
// displacement: lo12 is the sign-extended low 12 bits, hi20 is the
// remaining bits with a +1 correction when lo12 is negative.
func splitHiLo(disp int64) (hi20 int32, lo12 int32) {
	lo12 = int32(disp & 0xFFF)
	if lo12 >= 0x800 {
		lo12 -= 0x1000
	}
	hi20 = int32((disp - int64(lo12)) >> 12)
	return
}

func (r RISCV64) ApplyRelocations(segment []byte, segmentBase uint64, relocs []Reloc, plt *PLT) error {
	hiDisp := make(map[uint64]int64) // hi20 site address -> computed disp

	for _, rl := range relocs {
		off := rl.P - segmentBase
		if off+4 > uint64(len(segment)) {
			return kernelerr.New(kernelerr.InvalidInput, "module", "ApplyRelocations", "relocation site out of segment")
		}

		switch elf.R_RISCV(rl.Type) {
		case elf.R_RISCV_64:
			value := rl.Symbol + uint64(rl.Addend)
			if off+8 > uint64(len(segment)) {
				return kernelerr.New(kernelerr.InvalidInput, "module", "ApplyRelocations", "R_RISCV_64 out of segment")
			}
			binary.LittleEndian.PutUint64(segment[off:off+8], value)

		case elf.R_RISCV_CALL, elf.R_RISCV_CALL_PLT:
			target := rl.Symbol + uint64(rl.Addend)
			disp := int64(target) - int64(rl.P)

			if disp >= callRangeRISCV || disp < -callRangeRISCV {
				stub, err := plt.Stub(target)
				if err != nil {
					return err
				}
				target = stub
				disp = int64(target) - int64(rl.P)
			}

			hi20, lo12 := splitHiLo(disp)

			auipc := binary.LittleEndian.Uint32(segment[off : off+4])
			auipc = (auipc &^ (0xFFFFF << 12)) | (uint32(hi20) << 12)
			binary.LittleEndian.PutUint32(segment[off:off+4], auipc)

			jalrOff := off + 4
			if jalrOff+4 > uint64(len(segment)) {
				return kernelerr.New(kernelerr.InvalidInput, "module", "ApplyRelocations", "CALL pair truncated")
			}
			jalr := binary.LittleEndian.Uint32(segment[jalrOff : jalrOff+4])
			jalr = (jalr &^ (0xFFF << 20)) | (uint32(int32(lo12)) << 20)
			binary.LittleEndian.PutUint32(segment[jalrOff:jalrOff+4], jalr)

		case elf.R_RISCV_PCREL_HI20:
			target := rl.Symbol + uint64(rl.Addend)
			disp := int64(target) - int64(rl.P)
			hiDisp[rl.P] = disp

			hi20, _ := splitHiLo(disp)
			insn := binary.LittleEndian.Uint32(segment[off : off+4])
			insn = (insn &^ (0xFFFFF << 12)) | (uint32(hi20) << 12)
			binary.LittleEndian.PutUint32(segment[off:off+4], insn)

		case elf.R_RISCV_PCREL_LO12_I:
			hiSite := rl.Symbol
			disp, ok := hiDisp[hiSite]
			if !ok {
				return kernelerr.New(kernelerr.InvalidInput, "module", "ApplyRelocations", "PCREL_LO12_I without matching HI20")
			}
			_, lo12 := splitHiLo(disp)

			insn := binary.LittleEndian.Uint32(segment[off : off+4])
			insn = (insn &^ (0xFFF << 20)) | (uint32(int32(lo12)) << 20)
			binary.LittleEndian.PutUint32(segment[off:off+4], insn)

		default:
			return kernelerr.New(kernelerr.Unsupported, "module", "ApplyRelocations", "unsupported RISC-V relocation type")
		}
	}

	return nil
}

func (RISCV64) FlushICache(ranges []ICacheRange) {
	for _, r := range ranges {
		flushICacheRangeRISCV64(r.Addr, r.Length)
	}
}

// flushICacheRangeRISCV64 issues FENCE.I, wired to the real routine by the
// riscv64 board package at boot.
var flushICacheRangeRISCV64 = func(addr uint64, length int) {}

// SetICacheFlusherRISCV64 installs the real cache-maintenance routine.
func SetICacheFlusherRISCV64(fn func(addr uint64, length int)) {
	flushICacheRangeRISCV64 = fn
}
