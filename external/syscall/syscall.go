// Syscall dispatcher collaborator stub
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package syscall defines the Linux-ABI-compatible syscall dispatcher
// interface contract: a full userspace syscall surface is out of core
// scope (no paging, no process isolation), but the number-to-handler
// routing table and its errno reporting are wired here against
// gVisor's abi/linux tables rather than hand-transcribed, so a future
// syscall-capable module has a concrete, ABI-correct home to register
// against.
package syscall

import (
	"gvisor.dev/gvisor/pkg/abi/linux"

	"github.com/usbarmory/virtcore/kernelerr"
)

// Number identifies a syscall in the Linux ARM64/RISC-V64 ABI.
type Number uint64

// A minimal subset of the numbers a dispatcher would route: read,
// write and exit_group are the three syscalls every hosted Linux
// userland issues during early bring-up, named against gVisor's table
// instead of hand-transcribed constants.
const (
	SysRead      Number = Number(linux.SYS_READ)
	SysWrite     Number = Number(linux.SYS_WRITE)
	SysExitGroup Number = Number(linux.SYS_EXIT_GROUP)
)

// Handler services one syscall with raw ABI register arguments,
// returning the raw return value (a negative errno on failure, per
// the Linux ABI convention).
type Handler func(args [6]uint64) int64

// Dispatcher routes syscall numbers to registered handlers.
type Dispatcher struct {
	handlers map[Number]Handler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Number]Handler)}
}

// Register installs h as the handler for n, replacing any prior
// registration.
func (d *Dispatcher) Register(n Number, h Handler) {
	d.handlers[n] = h
}

// Dispatch looks up n and invokes its handler. If none is registered
// it returns -ENOSYS, matching what a real Linux kernel does for an
// unimplemented syscall number.
func (d *Dispatcher) Dispatch(n Number, args [6]uint64) (int64, error) {
	h, ok := d.handlers[n]
	if !ok {
		return -int64(linux.ENOSYS), kernelerr.New(kernelerr.Unsupported, "syscall", "Dispatch", "no handler registered")
	}

	return h(args), nil
}
