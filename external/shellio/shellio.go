// Interactive shell console collaborator stub
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package shellio is the host side of the QEMU serial console a
// harness uses to drive an interactive shell: an in-kernel shell is
// out of core scope, but the raw-mode terminal handling a host harness
// needs to talk to one over the fallback UART is wired here, grounded
// on the pack's own host-side terminal adapter for a simulated
// console.
package shellio

import (
	"errors"

	"golang.org/x/term"

	"github.com/usbarmory/virtcore/kernelerr"
)

// ErrNoTTY is returned when the host fd backing the console is not a
// terminal, mirroring the pack's own console sentinel.
var ErrNoTTY = errors.New("shellio: not a TTY")

// Console puts a host file descriptor into raw mode so a byte stream
// read from it can be forwarded to the kernel's UART put/get contract
// (spec §6's fallback console) without line-buffering or echo getting
// in the way.
type Console struct {
	fd    int
	state *term.State
}

// NewConsole puts fd into raw mode.
func NewConsole(fd int) (*Console, error) {
	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, kernelerr.New(kernelerr.Fatal, "shellio", "NewConsole", err.Error())
	}

	return &Console{fd: fd, state: state}, nil
}

// Restore returns the terminal to its state from before NewConsole.
func (c *Console) Restore() error {
	return term.Restore(c.fd, c.state)
}
