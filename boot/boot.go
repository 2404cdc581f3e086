// Kernel entry sequencing
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package boot drives the bring-up sequence: early memory layout, frame
// allocator and heap, MMU enable, DTB discovery and platform-config
// assembly, interrupt controller and timer, scheduler and idle threads,
// then secondary-CPU bring-up. The RAM range behind the early layout
// comes from the entry stub's RamBase/RamSize; the device tree is parsed
// only after the MMU is on, and its /memory node does not feed the
// layout. The arch-specific
// halves (boot_arm64.go, boot_riscv64.go) wire the capability
// interfaces this package's orchestration logic is blind to.
package boot

import (
	"github.com/usbarmory/virtcore/dtb"
	"github.com/usbarmory/virtcore/kernelerr"
	"github.com/usbarmory/virtcore/mem"
	"github.com/usbarmory/virtcore/platform"
)

// haltHook is the arch-specific idle-wait primitive (wfi on ARM64, wfi
// on RISC-V); defaults to a busy spin so Fatal still halts before any
// arch wires a real hook.
var haltHook = func() {}

// SetHaltHook installs the arch's wait-for-interrupt primitive.
func SetHaltHook(fn func()) {
	haltHook = fn
}

// printHook is the fallback console sink, wired to a board UART's Put
// before the logging ring buffer collaborator takes over.
var printHook = func(s string) {}

// SetPrintHook installs the fallback console sink.
func SetPrintHook(fn func(s string)) {
	printHook = fn
}

func logf(s string) {
	printHook(s)
}

// Fatal logs err and halts the CPU in a tight loop, per spec's error
// taxonomy: Fatal at boot never returns.
func Fatal(err error) {
	logf("boot: fatal: " + err.Error() + "\n")

	for {
		haltHook()
	}
}

// discoverDTB parses the blob at dtbAddr if non-zero, otherwise falls
// back to dtb.Scan over the supplied RAM window.
func discoverDTB(dtbAddr uint64, ram []byte, ramBase uint64) (*dtb.Blob, error) {
	if dtbAddr != 0 {
		off := dtbAddr - ramBase
		if off > uint64(len(ram)) {
			return nil, kernelerr.New(kernelerr.InvalidInput, "boot", "discoverDTB", "DTB address outside RAM")
		}
		return dtb.Parse(ram[off:])
	}

	ramEnd := ramBase + uint64(len(ram))
	return dtb.Scan(ram, ramEnd, ramBase)
}

// bringup holds the state threaded through the shared orchestration
// steps, filled in by each arch's Run.
type bringup struct {
	ramBase uint64
	ramSize uint64

	kernelStart uint64
	kernelEnd   uint64

	blob   *dtb.Blob
	layout *mem.Layout
	frames *mem.FrameAllocator
	heap   *mem.Heap
	cfg    *platform.Config
}

// earlyMemory computes the layout, publishes it, and builds the frame
// allocator and heap over it. Shared by both arch Run entry points.
func earlyMemory(b *bringup) {
	b.layout = mem.ComputeLayout(b.ramBase, b.ramSize, b.kernelStart, b.kernelEnd)
	mem.Publish(b.layout)

	poolPages := int(b.layout.FramePoolSize / mem.PageSize)
	b.frames = mem.NewFrameAllocator(b.layout.FramePoolStart, poolPages)
	b.heap = mem.NewHeap(b.layout.HeapStart, b.layout.HeapSize)
}

// assemblePlatform parses the DTB (if found) into a platform.Config,
// publishing it for the rest of the kernel to read without locking.
func assemblePlatform(b *bringup, ram []byte, dtbAddr uint64) error {
	blob, err := discoverDTB(dtbAddr, ram, b.ramBase)
	if err != nil {
		return err
	}
	b.blob = blob

	cfg, err := platform.Assemble(blob, nil)
	if err != nil {
		return err
	}
	b.cfg = cfg
	platform.Publish(cfg)

	return nil
}
