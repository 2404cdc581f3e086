// QEMU virt (ARM64) PL011 UART driver
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package virt

import "github.com/usbarmory/virtcore/internal/reg"

// PL011 register offsets (ARM PrimeCell UART (PL011) Technical Reference
// Manual), as instantiated by QEMU `virt`.
const (
	UARTDR = 0x00
	UARTFR = 0x18

	UARTFR_TXFF = 5
	UARTFR_RXFE = 4
)

// UART is the fallback console driver used before the logging ring buffer
// collaborator is wired up, satisfying §6's "byte-at-a-time put/poll-get"
// contract.
type UART struct {
	Base uint64
}

// Put transmits a single byte, spinning while the TX FIFO is full.
func (u *UART) Put(b byte) {
	for reg.Get64(u.Base+UARTFR, UARTFR_TXFF) {
	}

	reg.Write64(u.Base+UARTDR, uint64(b))
}

// Get returns a byte and true if the RX FIFO is non-empty, or false
// without blocking otherwise.
func (u *UART) Get() (byte, bool) {
	if reg.Get64(u.Base+UARTFR, UARTFR_RXFE) {
		return 0, false
	}

	return byte(reg.GetN64(u.Base+UARTDR, 0, 0xff)), true
}
