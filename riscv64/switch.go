// RISC-V64 context switch
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv64

import (
	"unsafe"

	"github.com/usbarmory/virtcore/sched"
)

// defined in switch.s: saves the callee-saved GPRs (s0-s11), sp and ra of
// "from" into its Context, then restores "to"'s and returns into it.
func context_switch(from, to *sched.Context)

// defined in switch.s: the trampoline a newly created thread's Context.PC
// points at; loads Context.Callee[0] into a0 and calls ThreadTrampoline.
func thread_trampoline()

// Switcher is the sched.Switcher implementation for RV64.
type Switcher struct{}

func (Switcher) Switch(from, to *sched.Context) {
	context_switch(from, to)
}

// trampolineArgs stashes a thread's entry point and argument across the
// first context restore; Context carries only fixed-size register state,
// so the pointer to this struct travels in Callee[0].
type trampolineArgs struct {
	entry func(arg uintptr)
	arg   uintptr
}

func (Switcher) InitialContext(stack []byte, entry func(arg uintptr), arg uintptr) sched.Context {
	args := &trampolineArgs{entry: entry, arg: arg}

	ctx := sched.Context{
		SP: stackTop(stack),
		PC: funcAddr(thread_trampoline),
	}
	ctx.Callee[0] = uint64(uintptr(unsafe.Pointer(args)))

	return ctx
}

// ThreadTrampoline is invoked by thread_trampoline with the argsPtr
// stashed in Callee[0], for a thread's very first resume.
func ThreadTrampoline(argsPtr uint64) {
	args := (*trampolineArgs)(unsafe.Pointer(uintptr(argsPtr)))
	args.entry(args.arg)
}

func stackTop(stack []byte) uint64 {
	top := uintptr(unsafe.Pointer(&stack[0])) + uintptr(len(stack))
	top &^= 0xf // 16-byte stack alignment
	return uint64(top)
}

// funcAddr extracts the code address of a parameterless Go function
// value, the same trick exception.go's vector() uses for handlers.
func funcAddr(fn func()) uint64 {
	return **(**uint64)(unsafe.Pointer(&fn))
}

// CPULocal implements sched.CPULocal via the tp register, left unused by
// the Go runtime on RV64 and thus free for the kernel's own use.
type CPULocal struct{}

// defined in switch.s
func write_tp(val uint64)
func read_tp() uint64

func (CPULocal) SetCPULocal(ptr uintptr) {
	write_tp(uint64(ptr))
}

func (CPULocal) GetCPULocal() uintptr {
	return uintptr(read_tp())
}
