// Memory layout descriptor
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem provides the early memory layout descriptor, the bitmap
// frame allocator and the kernel heap.
package mem

import "sync"

// PageSize is the fixed physical page frame size.
const PageSize = 4096

// defaultReservedTail is the span at the end of RAM protected from the
// frame pool to keep the DTB and firmware tables from being overwritten.
const defaultReservedTail = 4 * 1024 * 1024

// maxHeapSize bounds the heap at 128 MiB regardless of RAM size.
const maxHeapSize = 128 * 1024 * 1024

// Layout is produced exactly once by early init and is read-only
// thereafter; concurrent readers need no lock once Publish has run.
type Layout struct {
	RAMBase uint64
	RAMSize uint64

	KernelStart uint64
	KernelEnd   uint64

	HeapStart uint64
	HeapSize  uint64

	FramePoolStart uint64
	FramePoolSize  uint64

	ReservedTail uint64
}

var (
	layoutOnce      sync.Once
	layoutPublished *Layout
)

// align4K rounds n up to the next 4 KiB boundary.
func align4K(n uint64) uint64 {
	return (n + PageSize - 1) &^ (PageSize - 1)
}

// ComputeLayout derives a Layout from the RAM range and the kernel's own
// linker-provided extent, following spec's sizing rules: heap is
// min(ramSize/4, 128 MiB), 4 KiB-aligned after kernelEnd; the frame pool
// spans from heap end to ramEnd-reservedTail.
func ComputeLayout(ramBase, ramSize, kernelStart, kernelEnd uint64) *Layout {
	heapStart := align4K(kernelEnd)

	heapSize := ramSize / 4
	if heapSize > maxHeapSize {
		heapSize = maxHeapSize
	}
	heapSize = align4K(heapSize)

	framePoolStart := align4K(heapStart + heapSize)
	ramEnd := ramBase + ramSize

	reservedTail := uint64(defaultReservedTail)
	if reservedTail > ramSize {
		reservedTail = 0
	}

	framePoolEnd := ramEnd - reservedTail
	var framePoolSize uint64
	if framePoolEnd > framePoolStart {
		framePoolSize = framePoolEnd - framePoolStart
	}

	return &Layout{
		RAMBase:        ramBase,
		RAMSize:        ramSize,
		KernelStart:    kernelStart,
		KernelEnd:      kernelEnd,
		HeapStart:      heapStart,
		HeapSize:       heapSize,
		FramePoolStart: framePoolStart,
		FramePoolSize:  framePoolSize,
		ReservedTail:   reservedTail,
	}
}

// Publish records l as the process-global layout. Only the first call
// takes effect, matching the "produced exactly once" invariant.
func Publish(l *Layout) {
	layoutOnce.Do(func() {
		layoutPublished = l
	})
}

// Current returns the published Layout, or nil before Publish has run.
func Current() *Layout {
	return layoutPublished
}
