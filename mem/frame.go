// Bitmap physical frame allocator
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

import (
	"sync"

	"github.com/usbarmory/virtcore/kernelerr"
)

const bitsPerWord = 64

// FrameAllocator is a first-fit bitmap allocator over a contiguous pool
// of 4 KiB frames. One bit per page; 0 means free.
//
// Acquire order (spec §4.5): frame allocator is acquired before the heap,
// the scheduler and the VFS — never the other way around.
type FrameAllocator struct {
	mu sync.Mutex

	base      uint64
	pageCount int

	bitmap []uint64

	// nextSearch is the page index where the next first-fit scan begins;
	// snapped back to the freed base on Free to encourage reuse.
	nextSearch int

	allocated int
	highWater int
}

// NewFrameAllocator creates an allocator over [base, base+pageCount*PageSize).
// The pages at the head of the pool that the bitmap's size would occupy
// are marked allocated immediately, per spec invariant (ii), and are
// never handed out. The bitmap itself is held in a Go-allocated slice;
// those head pages do not store it.
func NewFrameAllocator(base uint64, pageCount int) *FrameAllocator {
	words := (pageCount + bitsPerWord - 1) / bitsPerWord

	fa := &FrameAllocator{
		base:      base,
		pageCount: pageCount,
		bitmap:    make([]uint64, words),
	}

	bitmapBytes := words * 8
	bitmapPages := (bitmapBytes + PageSize - 1) / PageSize

	for i := 0; i < bitmapPages && i < pageCount; i++ {
		fa.setBit(i)
	}

	fa.allocated = bitmapPages
	fa.highWater = bitmapPages

	return fa
}

func (fa *FrameAllocator) setBit(page int) {
	fa.bitmap[page/bitsPerWord] |= 1 << uint(page%bitsPerWord)
}

func (fa *FrameAllocator) clearBit(page int) {
	fa.bitmap[page/bitsPerWord] &^= 1 << uint(page%bitsPerWord)
}

func (fa *FrameAllocator) bitSet(page int) bool {
	return fa.bitmap[page/bitsPerWord]&(1<<uint(page%bitsPerWord)) != 0
}

// findRun scans for the first run of n consecutive free pages starting at
// nextSearch, wrapping around the pool once. Whole all-ones words are
// skipped in one step; only words with at least one zero bit are probed
// bit by bit.
func (fa *FrameAllocator) findRun(n int) (int, bool) {
	for cursor := 0; cursor <= fa.pageCount; {
		page := fa.nextSearch + cursor
		if page >= fa.pageCount {
			page -= fa.pageCount
		}

		word := page / bitsPerWord
		if fa.bitmap[word] == ^uint64(0) {
			// whole word occupied: skip to the next word boundary
			skip := bitsPerWord - page%bitsPerWord
			cursor += skip
			continue
		}

		if fa.bitSet(page) {
			cursor++
			continue
		}

		run := 1
		for run < n {
			p := page + run
			if p >= fa.pageCount || fa.bitSet(p) {
				break
			}
			run++
		}

		if run >= n {
			return page, true
		}

		cursor += run
	}

	return 0, false
}

// AllocFrame returns a single free page or ok=false if none is available.
func (fa *FrameAllocator) AllocFrame() (addr uint64, ok bool) {
	return fa.AllocFrames(1)
}

// AllocFrames returns the base address of n consecutive free pages, or
// ok=false if no such run exists after a full wraparound sweep.
func (fa *FrameAllocator) AllocFrames(n int) (addr uint64, ok bool) {
	if n <= 0 {
		return 0, false
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()

	page, found := fa.findRun(n)
	if !found {
		return 0, false
	}

	for i := 0; i < n; i++ {
		fa.setBit(page + i)
	}

	fa.nextSearch = page + n
	if fa.nextSearch >= fa.pageCount {
		fa.nextSearch = 0
	}

	fa.allocated += n
	if fa.allocated > fa.highWater {
		fa.highWater = fa.allocated
	}

	return fa.base + uint64(page)*PageSize, true
}

// FreeFrame releases a single page previously returned by AllocFrame.
func (fa *FrameAllocator) FreeFrame(addr uint64) error {
	return fa.FreeFrames(addr, 1)
}

// FreeFrames releases n consecutive pages previously returned together by
// AllocFrames. Freeing an address/count that was not handed out together
// is a kernel bug; the bits-were-set assertion in spec invariant (iv)
// catches misuse.
func (fa *FrameAllocator) FreeFrames(addr uint64, n int) error {
	if n <= 0 || addr < fa.base {
		return kernelerr.New(kernelerr.InvalidInput, "mem", "FreeFrames", "address out of pool")
	}

	page := int((addr - fa.base) / PageSize)

	fa.mu.Lock()
	defer fa.mu.Unlock()

	if page+n > fa.pageCount {
		return kernelerr.New(kernelerr.InvalidInput, "mem", "FreeFrames", "range exceeds pool")
	}

	for i := 0; i < n; i++ {
		if !fa.bitSet(page + i) {
			return kernelerr.New(kernelerr.InvalidInput, "mem", "FreeFrames", "double free")
		}
	}

	for i := 0; i < n; i++ {
		fa.clearBit(page + i)
	}

	fa.allocated -= n
	fa.nextSearch = page

	return nil
}

// Stats reports current allocator statistics.
type Stats struct {
	PageCount     int
	Allocated     int
	HighWaterMark int
}

// Stats returns a snapshot of the allocator's statistics.
func (fa *FrameAllocator) Stats() Stats {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	return Stats{
		PageCount:     fa.pageCount,
		Allocated:     fa.allocated,
		HighWaterMark: fa.highWater,
	}
}
