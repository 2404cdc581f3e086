// QEMU virt (RISC-V64) ns16550-compatible UART driver
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv_virt

import "unsafe"

// ns16550 register offsets (byte-spaced, reg-shift=0 as QEMU `virt`
// instantiates it); accessed as raw bytes since internal/reg's 64-bit
// primitives assume 4-byte-or-wider register spacing, which this device
// does not have.
const (
	RBR = 0 // receiver buffer (read)
	THR = 0 // transmit holding (write)
	LSR = 5 // line status

	LSR_DR   = 1 << 0 // data ready
	LSR_THRE = 1 << 5 // transmit holding register empty
)

func readByte(addr uint64) byte {
	return *(*byte)(unsafe.Pointer(uintptr(addr)))
}

func writeByte(addr uint64, val byte) {
	*(*byte)(unsafe.Pointer(uintptr(addr))) = val
}

// UART is the fallback console driver used before the logging ring buffer
// collaborator is wired up, satisfying §6's "byte-at-a-time put/poll-get"
// contract.
type UART struct {
	Base uint64
}

// Put transmits a single byte, spinning while the holding register is
// full.
func (u *UART) Put(b byte) {
	for readByte(u.Base+LSR)&LSR_THRE == 0 {
	}

	writeByte(u.Base+THR, b)
}

// Get returns a byte and true if the receive buffer has data, or false
// without blocking otherwise.
func (u *UART) Get() (byte, bool) {
	if readByte(u.Base+LSR)&LSR_DR == 0 {
		return 0, false
	}

	return readByte(u.Base + RBR), true
}
