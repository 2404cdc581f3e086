// RISC-V Platform-Level Interrupt Controller (PLIC) driver
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv64

import "github.com/usbarmory/virtcore/internal/reg"

// PLIC register offsets (RISC-V Platform-Level Interrupt Controller
// Specification, stride/layout as implemented by QEMU `virt`).
const (
	plicPriorityBase  = 0x000000
	plicPendingBase   = 0x001000
	plicEnableBase    = 0x002000
	plicEnableStride  = 0x80
	plicContextBase   = 0x200000
	plicContextStride = 0x1000
)

// supervisorContext is this hart's S-mode context index within the
// contiguous enable/threshold/claim region (QEMU `virt`: context 2*hart+1
// is S-mode, 2*hart is M-mode).
func supervisorContext(hart int) int {
	return 2*hart + 1
}

// PLIC is the platform interrupt controller driver for the RISC-V64
// capability layer.
type PLIC struct {
	Base uint64
	hart int
}

// Init configures threshold 0 (accept all priorities) for this hart's
// supervisor context.
func (p *PLIC) Init(hart int) {
	p.hart = hart
	ctx := supervisorContext(hart)
	reg.Write64(p.Base+plicContextBase+uint64(ctx)*plicContextStride, 0)
}

// EnableInterrupt sets source's priority to 1 and enables it for this
// hart's supervisor context.
func (p *PLIC) EnableInterrupt(source int) {
	reg.Write64(p.Base+plicPriorityBase+uint64(source)*4, 1)

	ctx := supervisorContext(p.hart)
	word := source / 32
	bit := source % 32

	addr := p.Base + plicEnableBase + uint64(ctx)*plicEnableStride + uint64(word)*4
	reg.Set64(addr, bit)
}

// DisableInterrupt clears source's enable bit for this hart.
func (p *PLIC) DisableInterrupt(source int) {
	ctx := supervisorContext(p.hart)
	word := source / 32
	bit := source % 32

	addr := p.Base + plicEnableBase + uint64(ctx)*plicEnableStride + uint64(word)*4
	reg.Clear64(addr, bit)
}

// Claim returns the highest-priority pending interrupt id for this
// hart's context, or 0 if none is pending.
func (p *PLIC) Claim() int {
	ctx := supervisorContext(p.hart)
	return int(reg.Read64(p.Base + plicContextBase + uint64(ctx)*plicContextStride + 4))
}

// Complete signals completion of handling for source.
func (p *PLIC) Complete(source int) {
	ctx := supervisorContext(p.hart)
	reg.Write64(p.Base+plicContextBase+uint64(ctx)*plicContextStride+4, uint64(source))
}
