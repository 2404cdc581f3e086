// Kernel error taxonomy
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package kernelerr defines the error taxonomy shared by every core
// subsystem (memory, scheduler, module loader, platform config).
//
// Core APIs return explicit *Error values, never panic, except at the
// Fatal boot halts the boot package invokes directly.
package kernelerr

import "fmt"

// Kind classifies an error into one of the taxonomy buckets every
// subsystem reports against.
type Kind int

const (
	// InvalidInput means the caller violated a contract (bad DTB magic,
	// non-ELF bytes).
	InvalidInput Kind = iota
	// Unsupported means the input is recognized but unhandled (a
	// non-native ELF machine).
	Unsupported
	// NotFound means a required artifact is missing (an unresolved
	// symbol, a missing /memory node).
	NotFound
	// OutOfMemory means a frame or heap allocator is exhausted.
	OutOfMemory
	// Capacity means a fixed limit was reached (PLT entries, CPU count).
	Capacity
	// Busy means a resource is held incompatibly (a try-acquire
	// failure).
	Busy
	// Fatal means an invariant was broken; at boot this halts the CPU.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case Unsupported:
		return "unsupported"
	case NotFound:
		return "not found"
	case OutOfMemory:
		return "out of memory"
	case Capacity:
		return "capacity"
	case Busy:
		return "busy"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error ties a Kind to the subsystem and operation that raised it.
type Error struct {
	Kind   Kind
	Module string
	Op     string
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s: %s", e.Module, e.Op, e.Kind)
	}

	return fmt.Sprintf("%s: %s: %s: %s", e.Module, e.Op, e.Kind, e.Msg)
}

// New builds an *Error for the given module/operation pair.
func New(kind Kind, module string, op string, msg string) *Error {
	return &Error{Kind: kind, Module: module, Op: op, Msg: msg}
}

// Is reports whether err is a *Error of the given Kind, for use with
// errors.Is-style call sites.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
