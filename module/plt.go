// Procedure linkage table
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package module

import "github.com/usbarmory/virtcore/kernelerr"

// PLTEntrySize is the fixed trampoline size: a short indirect-jump
// sequence followed by the 8-byte absolute target quad.
const PLTEntrySize = 16

// DefaultPLTEntries is the default per-module PLT capacity.
const DefaultPLTEntries = 256

// PLT is the small trampoline region co-allocated near a module's code
// pages (page zero of the module's allocation). It guarantees at most
// one trampoline per target within a single module.
type PLT struct {
	base     uint64
	capacity int
	used     int

	// targetToStub maps an out-of-range call target to the stub address
	// already created for it, enforcing deduplication (spec §4.8,
	// testable property 8).
	targetToStub map[uint64]uint64

	write func(mem []byte, stubAddr uint64, target uint64)
	mem   []byte
}

// NewPLT creates a PLT table over mem (the module's PLT page), based at
// base, with room for capacity entries.
func NewPLT(base uint64, mem []byte, capacity int, write func(mem []byte, stubAddr uint64, target uint64)) *PLT {
	return &PLT{
		base:         base,
		capacity:     capacity,
		targetToStub: make(map[uint64]uint64),
		write:        write,
		mem:          mem,
	}
}

// Entries returns the number of stubs created so far.
func (p *PLT) Entries() int {
	return p.used
}

// Stub returns the trampoline address for target, creating one (writing
// its fixed instruction encoding plus the absolute target quad) if this
// is the first reference to that target within the module. Stubs are
// immutable once created.
func (p *PLT) Stub(target uint64) (uint64, error) {
	if addr, ok := p.targetToStub[target]; ok {
		return addr, nil
	}

	if p.used >= p.capacity {
		return 0, kernelerr.New(kernelerr.Capacity, "module", "PLT.Stub", "PLT entry budget exceeded")
	}

	offset := p.used * PLTEntrySize
	addr := p.base + uint64(offset)

	p.write(p.mem[offset:offset+PLTEntrySize], addr, target)
	p.targetToStub[target] = addr
	p.used++

	return addr, nil
}
