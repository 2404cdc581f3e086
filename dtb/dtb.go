// Flattened device tree parser
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dtb implements a minimal flattened device tree (FDT) parser
// scoped to spec §4.1's needs: memory discovery, compatible-string
// lookup, CPU counting, and interrupt-controller/timer/UART discovery
// feeding platform-config assembly. It is not a general-purpose DTB
// library surface for other subsystems (VFS, block) to build on; those
// are out of core scope.
package dtb

import (
	"encoding/binary"

	"github.com/usbarmory/virtcore/kernelerr"
)

// Magic is the required FDT header magic word.
const Magic = 0xD00DFEED

// FDT structure-block tokens.
const (
	tokenBeginNode = 1
	tokenEndNode   = 2
	tokenProp      = 3
	tokenNop       = 4
	tokenEnd       = 9
)

// header mirrors the fixed 40-byte FDT header, all fields big-endian.
type header struct {
	Magic           uint32
	TotalSize       uint32
	OffDTStruct     uint32
	OffDTStrings    uint32
	OffMemRsvMap    uint32
	Version         uint32
	LastCompVersion uint32
	BootCPUIDPhys   uint32
	SizeDTStrings   uint32
	SizeDTStruct    uint32
}

const headerSize = 40
const minVersion = 16

// Blob is a parsed, validated flattened device tree view over a raw byte
// buffer (the DTB is memory-mapped and read-only, per spec §6).
type Blob struct {
	data []byte
	hdr  header
}

// Parse validates the FDT header at the start of data and returns a Blob
// ready for queries.
func Parse(data []byte) (*Blob, error) {
	if len(data) < headerSize {
		return nil, kernelerr.New(kernelerr.InvalidInput, "dtb", "Parse", "buffer shorter than header")
	}

	var h header
	h.Magic = binary.BigEndian.Uint32(data[0:4])
	h.TotalSize = binary.BigEndian.Uint32(data[4:8])
	h.OffDTStruct = binary.BigEndian.Uint32(data[8:12])
	h.OffDTStrings = binary.BigEndian.Uint32(data[12:16])
	h.OffMemRsvMap = binary.BigEndian.Uint32(data[16:20])
	h.Version = binary.BigEndian.Uint32(data[20:24])
	h.LastCompVersion = binary.BigEndian.Uint32(data[24:28])
	h.BootCPUIDPhys = binary.BigEndian.Uint32(data[28:32])
	h.SizeDTStrings = binary.BigEndian.Uint32(data[32:36])
	h.SizeDTStruct = binary.BigEndian.Uint32(data[36:40])

	if h.Magic != Magic {
		return nil, kernelerr.New(kernelerr.InvalidInput, "dtb", "Parse", "invalid magic")
	}

	if h.Version < minVersion {
		return nil, kernelerr.New(kernelerr.InvalidInput, "dtb", "Parse", "invalid version")
	}

	return &Blob{data: data, hdr: h}, nil
}

// Scan probes for a valid FDT when the caller cannot supply its
// address: first at ramEnd-2MiB, then across the first 512 KiB of RAM at
// 4 KiB steps, confirming the magic word at each candidate.
func Scan(ram []byte, ramEnd uint64, ramBase uint64) (*Blob, error) {
	const (
		tailProbe  = 2 * 1024 * 1024
		headSpan   = 512 * 1024
		headStride = 4096
	)

	if off := ramEnd - tailProbe - ramBase; off+headerSize <= uint64(len(ram)) {
		if b, err := Parse(ram[off:]); err == nil {
			return b, nil
		}
	}

	for off := uint64(0); off+headerSize <= uint64(len(ram)) && off < headSpan; off += headStride {
		if b, err := Parse(ram[off:]); err == nil {
			return b, nil
		}
	}

	return nil, kernelerr.New(kernelerr.NotFound, "dtb", "Scan", "no valid FDT found")
}
