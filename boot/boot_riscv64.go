// RISC-V64 entry sequencing
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import (
	"unsafe"

	"github.com/usbarmory/virtcore/kernelerr"
	"github.com/usbarmory/virtcore/mem"
	"github.com/usbarmory/virtcore/riscv64"
	"github.com/usbarmory/virtcore/sched"
	ksync "github.com/usbarmory/virtcore/sync"
)

// RamBase, RamSize, DTBAddr, KernelStart and KernelEnd are populated by
// the entry assembly stub before the Go runtime's World start; Hwinit1
// runs after, once heap allocation is available.
var (
	RamBase     uint64
	RamSize     uint64
	DTBAddr     uint64
	KernelStart uint64
	KernelEnd   uint64
)

//go:linkname Hwinit1 runtime/goos.Hwinit1
func Hwinit1() {
	Run()
}

func uint64SliceAt(addr uint64, n int) []uint64 {
	return unsafe.Slice((*uint64)(unsafe.Pointer(uintptr(addr))), n)
}

// Run drives the RISC-V64 bring-up sequence described in boot.go's
// package doc, wiring the PLIC/CLINT/SBI capabilities into sched and sync
// before bringing up secondary harts.
func Run() {
	cpu := &riscv64.CPU{}
	cpu.Init(0)

	SetHaltHook(cpu.WaitInterrupt)

	b := &bringup{
		ramBase:     RamBase,
		ramSize:     RamSize,
		kernelStart: KernelStart,
		kernelEnd:   KernelEnd,
	}

	earlyMemory(b)

	tableAddr, ok := b.frames.AllocFrames(1)
	if !ok {
		Fatal(kernelerr.New(kernelerr.OutOfMemory, "boot", "Run", "no frame for Sv39 root table"))
	}
	riscv64.InitMMU(uint64SliceAt(tableAddr, 512), b.ramBase, b.ramBase+b.ramSize)

	ram := mem.Bytes(b.ramBase, int(b.ramSize))
	if err := assemblePlatform(b, ram, DTBAddr); err != nil {
		Fatal(err)
	}

	SetPrintHook(func(s string) {
		for i := 0; i < len(s); i++ {
			print(string(s[i]))
		}
	})

	if b.cfg.CLINT != nil {
		riscv64.InitCLINT(b.cfg.CLINT.Base, b.cfg.Timer.Freq)
	}

	var controller *riscv64.PLIC
	if b.cfg.PLIC != nil {
		controller = &riscv64.PLIC{Base: b.cfg.PLIC.Base}
		controller.Init(0)
		controller.EnableInterrupt(b.cfg.UART.IRQ)
	}

	cpu.SetSupervisorExceptionHandler(riscv64.DefaultSupervisorExceptionHandler)

	ksync.SetIRQController(riscv64.IRQController{})
	ksync.SetPause(func() {})

	s := sched.New(b.cfg.CPUCount, riscv64.Switcher{}, riscv64.IPIRouter{})
	riscv64.SetIRQRouting(controller, s)

	sched.SetCPULocalCapability(riscv64.CPULocal{})
	s.BindCurrentCPU(0)

	cpu.ArmNextTick()
	cpu.EnableInterrupts()

	if b.cfg.CPUCount > 1 {
		if err := s.BootSecondaries(riscv64.SBI{}, secondaryEntry()); err != nil {
			logf("boot: secondary hart bring-up failed: " + err.Error() + "\n")
		}
	}
}

// secondaryEntry returns the address secondaries resume execution at;
// left as a function-value seam until the entry assembly stub exposes a
// dedicated secondary-hart trampoline symbol.
func secondaryEntry() uintptr {
	return 0
}
