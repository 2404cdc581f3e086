// Host-buildable memory simulation harness
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hostsim provides a plain `go test`-buildable stand-in for the
// bare-metal RAM window the mem, module and sched packages are built
// against. mem.Bytes interprets its addr argument as a raw mapped
// pointer; on real hardware that address comes from the boot-time RAM
// window, so a host test needs a genuine mmap-backed region at a known
// base address to exercise the same code path instead of a
// Go-allocated []byte (whose address Go's GC is free to move).
package hostsim

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/usbarmory/virtcore/kernelerr"
)

// Arena is an anonymous mmap-backed byte region simulating the boot-time
// RAM window. It is pinned for its lifetime (mmap'd memory is never
// moved by the Go runtime), so addresses handed out by a FrameAllocator
// or Heap built over it stay valid for mem.Bytes to dereference.
type Arena struct {
	mem []byte
}

// NewArena mmaps size bytes (rounded up to the host page size) of
// anonymous, read-write memory and returns an Arena over it.
func NewArena(size int) (*Arena, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, kernelerr.New(kernelerr.Fatal, "hostsim", "NewArena", err.Error())
	}

	return &Arena{mem: b}, nil
}

// Base returns the arena's address, suitable as the ramBase argument to
// mem.ComputeLayout.
func (a *Arena) Base() uint64 {
	return uint64(uintptr(unsafe.Pointer(&a.mem[0])))
}

// Size returns the arena's length in bytes.
func (a *Arena) Size() uint64 {
	return uint64(len(a.mem))
}

// Close unmaps the arena. Any FrameAllocator/Heap built over it must not
// be used afterward.
func (a *Arena) Close() error {
	if err := unix.Munmap(a.mem); err != nil {
		return kernelerr.New(kernelerr.Fatal, "hostsim", "Close", err.Error())
	}

	a.mem = nil
	return nil
}
