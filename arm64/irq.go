// ARM64 interrupt control
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

// defined in irq.s
func irq_enable()
func irq_disable()
func irq_enabled() bool
func wfi()

// EnableInterrupts unmasks IRQ interrupts.
func (cpu *CPU) EnableInterrupts() {
	irq_enable()
}

// DisableInterrupts masks IRQ interrupts.
func (cpu *CPU) DisableInterrupts() {
	irq_disable()
}

// WaitInterrupt suspends execution until an interrupt is received.
func (cpu *CPU) WaitInterrupt() {
	wfi()
}

// IRQController adapts the ARM64 DAIF mask to sync.IRQController: a
// single global implementation, since reading/disabling/restoring the
// interrupt mask only ever affects the calling core.
type IRQController struct{}

// DisableInterrupts masks IRQ delivery and reports whether interrupts
// were enabled beforehand, so RestoreInterrupts can undo exactly this
// critical section and no more (spec §5 nesting requirement).
func (IRQController) DisableInterrupts() bool {
	was := irq_enabled()
	irq_disable()
	return was
}

// RestoreInterrupts re-enables IRQ delivery only if it was enabled at the
// matching DisableInterrupts call.
func (IRQController) RestoreInterrupts(wasEnabled bool) {
	if wasEnabled {
		irq_enable()
	}
}
