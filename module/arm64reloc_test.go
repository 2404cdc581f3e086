package module

import (
	"debug/elf"
	"encoding/binary"
	"testing"
)

// Relocation correctness (ARM64 CALL26): for in-range (P, S+A), the
// patched word preserves the opcode bits and carries
// ((S+A-P)>>2) & 0x03FFFFFF in the low 26 bits.
func TestARM64CALL26RelocationCorrectness(t *testing.T) {
	cases := []struct {
		name     string
		p, sPlusA uint64
	}{
		{"forward small", 0x1000, 0x1000 + 64},
		{"backward small", 0x2000, 0x2000 - 64},
		{"upper half forward", 0x1000, 0x1000 + (callRange/2 + 64)},
		{"upper half backward", uint64(callRange), uint64(callRange) - (callRange/2 + 64)},
		{"near max forward", 0x1000, 0x1000 + (callRange - 4)},
		{"near max backward", uint64(callRange + 0x100000), uint64(callRange+0x100000) - (callRange - 4)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			const origOpcode = 0x94000000 // BL opcode bits, imm26 zeroed

			segment := make([]byte, 8)
			binary.LittleEndian.PutUint32(segment[0:4], origOpcode)

			relocs := []Reloc{{P: c.p, Type: uint32(elf.R_AARCH64_CALL26), Symbol: c.sPlusA, Addend: 0}}

			a := ARM64{}
			if err := a.ApplyRelocations(segment, c.p, relocs, nil); err != nil {
				t.Fatalf("ApplyRelocations: %v", err)
			}

			got := binary.LittleEndian.Uint32(segment[0:4])

			disp := int64(c.sPlusA) - int64(c.p)
			wantImm26 := uint32(disp/4) & 0x03FFFFFF
			want := (origOpcode &^ 0x03FFFFFF) | wantImm26

			if got != want {
				t.Fatalf("patched word: got %#08x want %#08x", got, want)
			}
		})
	}
}

// PLT interposition + deduplication: an out-of-range call site is
// redirected to a PLT stub whose quad equals S+A and whose two
// instructions match the fixed ARM64 encoding; two relocations sharing
// the same S+A within one module produce exactly one stub.
func TestARM64PLTInterpositionAndDedup(t *testing.T) {
	const p1 = 0x1000
	const p2 = 0x1100
	target := uint64(p1) + (callRange*2) // far out of CALL26 range

	pltMem := make([]byte, PLTEntrySize*DefaultPLTEntries)
	a := ARM64{}
	plt := NewPLT(0x3000, pltMem, DefaultPLTEntries, a.WritePLTStub)

	seg1 := make([]byte, 8)
	binary.LittleEndian.PutUint32(seg1[0:4], 0x94000000)
	relocs1 := []Reloc{{P: p1, Type: uint32(elf.R_AARCH64_CALL26), Symbol: target}}
	if err := a.ApplyRelocations(seg1, p1, relocs1, plt); err != nil {
		t.Fatalf("ApplyRelocations #1: %v", err)
	}

	seg2 := make([]byte, 8)
	binary.LittleEndian.PutUint32(seg2[0:4], 0x94000000)
	relocs2 := []Reloc{{P: p2, Type: uint32(elf.R_AARCH64_CALL26), Symbol: target}}
	if err := a.ApplyRelocations(seg2, p2, relocs2, plt); err != nil {
		t.Fatalf("ApplyRelocations #2: %v", err)
	}

	if plt.Entries() != 1 {
		t.Fatalf("PLT entries: got %d want 1 (dedup failed)", plt.Entries())
	}

	stubAddr := plt.base
	quad := binary.LittleEndian.Uint64(pltMem[8:16])
	if quad != target {
		t.Fatalf("stub quad: got %#x want %#x", quad, target)
	}

	insn0 := binary.LittleEndian.Uint32(pltMem[0:4])
	insn1 := binary.LittleEndian.Uint32(pltMem[4:8])
	if insn0 != 0x58000050 || insn1 != 0xD61F0200 {
		t.Fatalf("stub encoding: got %#08x %#08x", insn0, insn1)
	}

	imm26 := binary.LittleEndian.Uint32(seg1[0:4]) & 0x03FFFFFF
	if imm26&(1<<25) != 0 {
		imm26 |= 0xFC000000 // sign-extend the 26-bit immediate
	}
	decodedDisp := int64(int32(imm26)) * 4
	gotTarget := uint64(int64(p1) + decodedDisp)
	if gotTarget != stubAddr {
		t.Fatalf("call-site target: got %#x want PLT stub %#x", gotTarget, stubAddr)
	}
}
