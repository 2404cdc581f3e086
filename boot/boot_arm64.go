// ARM64 entry sequencing
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import (
	"unsafe"

	"github.com/usbarmory/virtcore/arm64"
	"github.com/usbarmory/virtcore/arm64/gic"
	"github.com/usbarmory/virtcore/kernelerr"
	"github.com/usbarmory/virtcore/mem"
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

// Run drives the ARM64 bring-up sequence described in boot.go's package
// doc, wiring the GICv3/generic-timer/PSCI capabilities into sched and
// sync before bringing up secondary cores.
func Run() {
	cpu := &arm64.CPU{}
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
		Fatal(kernelerr.New(kernelerr.OutOfMemory, "boot", "Run", "no frame for L1 table"))
	}
	arm64.InitMMU(uint64SliceAt(tableAddr, 512), b.ramBase, b.ramBase+b.ramSize)

	ram := mem.Bytes(b.ramBase, int(b.ramSize))
	if err := assemblePlatform(b, ram, DTBAddr); err != nil {
		Fatal(err)
	}

	SetPrintHook(func(s string) {
		for i := 0; i < len(s); i++ {
			print(string(s[i]))
		}
	})

	cpu.InitGenericTimers(0, uint32(b.cfg.Timer.Freq))

	var controller *gic.GIC
	if b.cfg.GIC != nil {
		controller = &gic.GIC{
			GICD: b.cfg.GIC.DistributorBase,
			GICR: b.cfg.GIC.CPUInterfaceBase,
		}
		controller.Init()
		controller.EnableInterrupt(arm64.TIMER_IRQ)
	}

	cpu.InitVectorTable(0)

	ksync.SetIRQController(arm64.IRQController{})
	ksync.SetPause(func() {})

	s := sched.New(b.cfg.CPUCount, arm64.Switcher{}, arm64.IPIRouter{GIC: controller})
	arm64.SetIRQRouting(controller, s)

	sched.SetCPULocalCapability(arm64.CPULocal{})
	s.BindCurrentCPU(0)

	cpu.ArmNextTick()
	cpu.EnableInterrupts()

	if b.cfg.CPUCount > 1 {
		if err := s.BootSecondaries(arm64.PSCI{}, secondaryEntry()); err != nil {
			logf("boot: secondary CPU bring-up failed: " + err.Error() + "\n")
		}
	}
}

// secondaryEntry returns the address secondaries resume execution at;
// left as a function-value seam until the entry assembly stub exposes a
// dedicated secondary-core trampoline symbol.
func secondaryEntry() uintptr {
	return 0
}
