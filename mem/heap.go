// Kernel heap
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

import (
	"container/list"
	"unsafe"

	"github.com/usbarmory/virtcore/kernelerr"
	ksync "github.com/usbarmory/virtcore/sync"
)

// block is one heap allocation or free span, addressed by a raw physical
// pointer and sized arbitrarily rather than per-page.
type block struct {
	addr uint64
	size uint64
	used bool
}

// Heap is a linked-list general-purpose allocator over a fixed byte range.
// It must be safe to call from IRQ-reachable paths (logging, the
// scheduler tick), so the lock is acquired via Spinlock.LockIRQ: local
// interrupts are disabled for the duration of the hold and restored by
// the returned guard's Unlock, rather than left to the caller's
// discipline.
type Heap struct {
	mu ksync.Spinlock

	start uint64
	size  uint64

	free *list.List
	used map[uint64]*block
}

// NewHeap initializes a heap over [start, start+size).
func NewHeap(start, size uint64) *Heap {
	h := &Heap{
		start: start,
		size:  size,
		free:  list.New(),
		used:  make(map[uint64]*block),
	}

	h.free.PushFront(&block{addr: start, size: size})

	return h
}

// align rounds addr up to a multiple of alignment, which must be a power
// of two; word alignment (8 bytes) is always enforced.
func align(addr uint64, alignment uint64) uint64 {
	if alignment < 8 {
		alignment = 8
	}

	return (addr + alignment - 1) &^ (alignment - 1)
}

// Alloc reserves size bytes with the given alignment and returns its
// address, or an error if the heap has no sufficiently large free block.
func (h *Heap) Alloc(size uint64, alignment uint64) (uint64, error) {
	if size == 0 {
		return 0, kernelerr.New(kernelerr.InvalidInput, "mem", "Alloc", "zero size")
	}

	g := h.mu.LockIRQ()
	defer g.Unlock()

	for e := h.free.Front(); e != nil; e = e.Next() {
		b := e.Value.(*block)

		alignedAddr := align(b.addr, alignment)
		padding := alignedAddr - b.addr
		need := padding + size

		if b.size < need {
			continue
		}

		if padding > 0 {
			h.free.InsertBefore(&block{addr: b.addr, size: padding}, e)
		}

		remainder := b.size - need
		if remainder > 0 {
			h.free.InsertAfter(&block{addr: alignedAddr + size, size: remainder}, e)
		}

		h.free.Remove(e)

		used := &block{addr: alignedAddr, size: size, used: true}
		h.used[alignedAddr] = used

		return alignedAddr, nil
	}

	return 0, kernelerr.New(kernelerr.OutOfMemory, "mem", "Alloc", "no block large enough")
}

// Dealloc releases a block previously returned by Alloc, merging it with
// adjacent free blocks.
func (h *Heap) Dealloc(addr uint64) error {
	g := h.mu.LockIRQ()
	defer g.Unlock()

	b, ok := h.used[addr]
	if !ok {
		return kernelerr.New(kernelerr.InvalidInput, "mem", "Dealloc", "not an outstanding allocation")
	}

	delete(h.used, addr)
	b.used = false

	for e := h.free.Front(); e != nil; e = e.Next() {
		if e.Value.(*block).addr > b.addr {
			h.free.InsertBefore(b, e)
			h.coalesce()
			return nil
		}
	}

	h.free.PushBack(b)
	h.coalesce()

	return nil
}

// coalesce merges adjacent free blocks; the free list is kept sorted by
// address by Alloc/Dealloc so a single forward pass suffices.
func (h *Heap) coalesce() {
	var prev *list.Element

	for e := h.free.Front(); e != nil; {
		next := e.Next()

		if prev != nil {
			pb := prev.Value.(*block)
			cb := e.Value.(*block)

			if pb.addr+pb.size == cb.addr {
				pb.size += cb.size
				h.free.Remove(e)
				e = next
				continue
			}
		}

		prev = e
		e = next
	}
}

// HeapStats reports total/used/free byte counts.
type HeapStats struct {
	Total uint64
	Used  uint64
	Free  uint64
}

// Stats returns a snapshot of heap utilization.
func (h *Heap) Stats() HeapStats {
	g := h.mu.LockIRQ()
	defer g.Unlock()

	var used uint64
	for _, b := range h.used {
		used += b.size
	}

	return HeapStats{Total: h.size, Used: used, Free: h.size - used}
}

// Bytes returns a byte slice view over an allocation, for callers that
// need to read/write the raw memory (e.g. the module loader copying
// section contents). It is only valid on hosts where addr is a real
// mapped pointer; under hostsim it is backed by a simulated arena.
func Bytes(addr uint64, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), length)
}
