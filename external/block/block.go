// Block device collaborator stub
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package block defines the block-device interface contract a storage
// stack (FAT32, GPT, whatever sits above a VirtIO-blk transport) would
// be built against. Partitioning and on-disk filesystems are out of
// core scope; this package exists so the contract compiles, exercised
// by a RAM-backed stub standing in for a real transport in tests.
package block

import "github.com/usbarmory/virtcore/kernelerr"

// Device is the contract a block device must satisfy, independent of
// the transport (VirtIO-blk, eMMC) underneath it.
type Device interface {
	BlockSize() int
	BlockCount() uint64
	ReadBlock(lba uint64, buf []byte) error
	WriteBlock(lba uint64, buf []byte) error
}

// RAMDisk is a Device backed by a plain byte slice.
type RAMDisk struct {
	size  int
	bytes []byte
}

// NewRAMDisk allocates a RAMDisk of blockCount blocks of blockSize
// bytes each.
func NewRAMDisk(blockSize int, blockCount uint64) *RAMDisk {
	return &RAMDisk{
		size:  blockSize,
		bytes: make([]byte, blockSize*int(blockCount)),
	}
}

func (d *RAMDisk) BlockSize() int {
	return d.size
}

func (d *RAMDisk) BlockCount() uint64 {
	return uint64(len(d.bytes) / d.size)
}

func (d *RAMDisk) ReadBlock(lba uint64, buf []byte) error {
	off, err := d.offset(lba, len(buf))
	if err != nil {
		return err
	}

	copy(buf, d.bytes[off:off+len(buf)])
	return nil
}

func (d *RAMDisk) WriteBlock(lba uint64, buf []byte) error {
	off, err := d.offset(lba, len(buf))
	if err != nil {
		return err
	}

	copy(d.bytes[off:off+len(buf)], buf)
	return nil
}

func (d *RAMDisk) offset(lba uint64, n int) (int, error) {
	if n != d.size {
		return 0, kernelerr.New(kernelerr.InvalidInput, "block", "offset", "buffer size must equal block size")
	}

	off := int(lba) * d.size
	if off+n > len(d.bytes) {
		return 0, kernelerr.New(kernelerr.NotFound, "block", "offset", "lba out of range")
	}

	return off, nil
}
