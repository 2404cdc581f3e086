package module

import (
	"debug/elf"
	"encoding/binary"
	"testing"
)

// decodeAUIPCJALR reverses WritePLTStub/ApplyRelocations' CALL-pair
// encoding, recovering the PC-relative displacement the pair targets.
func decodeAUIPCJALR(segment []byte, off uint64) int64 {
	auipc := binary.LittleEndian.Uint32(segment[off : off+4])
	jalr := binary.LittleEndian.Uint32(segment[off+4 : off+8])

	hi20 := int32(auipc) >> 12 // top 20 bits, sign-extended
	lo12 := int32(jalr) >> 20  // top 12 bits of the 32-bit word, sign-extended

	return (int64(hi20) << 12) + int64(lo12)
}

func TestRISCV64CALLRelocationRoundTrips(t *testing.T) {
	cases := []struct {
		name string
		p    uint64
		disp int64
	}{
		{"forward small", 0x1000, 0x100},
		{"backward small", 0x8000, -0x100},
		{"forward large", 0x1000, 1 << 20},
		{"backward large", 0x10_0000_0000, -(1 << 24)},
		{"upper half forward", 0x1000, callRangeRISCV/2 + (1 << 16)},
		{"upper half backward", 0x10_0000_0000, -(callRangeRISCV/2 + (1 << 16))},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			target := uint64(int64(c.p) + c.disp)

			segment := make([]byte, 8)
			relocs := []Reloc{{P: c.p, Type: uint32(elf.R_RISCV_CALL), Symbol: target}}

			r := RISCV64{}
			if err := r.ApplyRelocations(segment, c.p, relocs, nil); err != nil {
				t.Fatalf("ApplyRelocations: %v", err)
			}

			gotDisp := decodeAUIPCJALR(segment, 0)
			if gotDisp != c.disp {
				t.Fatalf("decoded disp: got %#x want %#x", gotDisp, c.disp)
			}
		})
	}
}

func TestRISCV64PLTStubEncodingAndDedup(t *testing.T) {
	const p1 = 0x1000
	const p2 = 0x2000
	target := uint64(0x5000_0000_0000) // far beyond any plausible in-range CALL

	pltMem := make([]byte, PLTEntrySize*DefaultPLTEntries)
	r := RISCV64{}
	plt := NewPLT(0x3000, pltMem, DefaultPLTEntries, r.WritePLTStub)

	seg1 := make([]byte, 8)
	if err := r.ApplyRelocations(seg1, p1, []Reloc{{P: p1, Type: uint32(elf.R_RISCV_CALL_PLT), Symbol: target}}, plt); err != nil {
		t.Fatalf("ApplyRelocations #1: %v", err)
	}

	seg2 := make([]byte, 8)
	if err := r.ApplyRelocations(seg2, p2, []Reloc{{P: p2, Type: uint32(elf.R_RISCV_CALL_PLT), Symbol: target}}, plt); err != nil {
		t.Fatalf("ApplyRelocations #2: %v", err)
	}

	if plt.Entries() != 1 {
		t.Fatalf("PLT entries: got %d want 1 (dedup failed)", plt.Entries())
	}

	quad := binary.LittleEndian.Uint64(pltMem[8:16])
	if quad != target {
		t.Fatalf("stub quad: got %#x want %#x", quad, target)
	}
}
