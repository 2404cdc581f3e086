// Preemptive round-robin scheduler
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sched

import (
	"sync/atomic"
	"unsafe"

	ksync "github.com/usbarmory/virtcore/sync"
)

// Switcher is the arch capability performing the low-level context
// switch: save the outgoing thread's callee-saved registers and SP, and
// restore the incoming thread's. Implemented as an assembly trampoline
// per ISA (LR vs RA handling differs); the scheduler drops its lock
// before calling this.
type Switcher interface {
	// Switch saves "from" and restores "to", returning once "from" is
	// resumed again by some future switch.
	Switch(from, to *Context)
	// InitialContext synthesizes the context for a just-created thread
	// so its first execution enters entry(arg) on top of stack.
	InitialContext(stack []byte, entry func(arg uintptr), arg uintptr) Context
}

// IPI is the arch capability for sending an inter-CPU reschedule
// doorbell (GIC SGI 0 on ARM64, CLINT MSIP on RISC-V64).
type IPI interface {
	SendReschedule(cpu int)
}

// Scheduler owns the single global TCB table and the per-CPU records. A
// Spinlock protects the table; spec's deadlock discipline places the
// scheduler lock after the frame allocator and heap, before the VFS.
type Scheduler struct {
	lock ksync.Spinlock

	tcbs    []*TCB
	nextTID uint64

	cpus [MaxCPUs]*PerCPU
	ncpu int

	switcher Switcher
	ipi      IPI

	rcuGen uint64
}

// New creates a Scheduler configured for ncpu CPUs (ncpu <= MaxCPUs) and
// installs the primary idle thread as TCB slot 0 / tid 1.
func New(ncpu int, switcher Switcher, ipi IPI) *Scheduler {
	if ncpu > MaxCPUs {
		ncpu = MaxCPUs
	}

	s := &Scheduler{
		tcbs:     make([]*TCB, 0, 64),
		nextTID:  idleTID,
		ncpu:     ncpu,
		switcher: switcher,
		ipi:      ipi,
	}

	idle := &TCB{TID: idleTID, Name: "idle", State: Ready}
	s.tcbs = append(s.tcbs, idle)
	s.nextTID++

	for i := 0; i < ncpu; i++ {
		s.cpus[i] = &PerCPU{CPUID: i, CurrentSlot: 0, IdleSlot: 0}
	}

	ksync.SetYielder(schedulerYielder{s})
	ksync.SetQuiescenceTracker(schedulerQuiescence{s})

	return s
}

// CPU returns the per-CPU record for the given logical CPU id.
func (s *Scheduler) CPU(id int) *PerCPU {
	if id < 0 || id >= s.ncpu {
		return nil
	}
	return s.cpus[id]
}

// BindCurrentCPU stores this CPU's PerCPU record in the CPU-local
// pointer register, so code with no explicit cpu argument (sync's
// Yielder/QuiescenceTracker adapters, IRQ entry) can recover it. Called
// once per core during bring-up, after SetCPULocalCapability.
func (s *Scheduler) BindCurrentCPU(cpu int) {
	if cpuLocal == nil {
		return
	}

	p := s.CPU(cpu)
	if p == nil {
		return
	}

	cpuLocal.SetCPULocal(uintptr(unsafe.Pointer(p)))
}

// currentCPU recovers the calling core's PerCPU record via the CPU-local
// pointer register, or nil if it has not been bound yet.
func currentCPU() *PerCPU {
	if cpuLocal == nil {
		return nil
	}

	ptr := cpuLocal.GetCPULocal()
	if ptr == 0 {
		return nil
	}

	return (*PerCPU)(unsafe.Pointer(ptr))
}

// Spawn creates a new Ready thread and returns its tid. affinity is a CPU
// bitmask; AnyCPU (0) permits any CPU.
func (s *Scheduler) Spawn(name string, entry func(arg uintptr), arg uintptr, affinity uint64) uint64 {
	g := s.lock.Lock()
	defer g.Unlock()

	stack := make([]byte, DefaultStackSize)

	tcb := &TCB{
		TID:      s.nextTID,
		Name:     name,
		State:    Ready,
		Affinity: affinity,
		Stack:    stack,
		entry:    entry,
		arg:      arg,
	}
	s.nextTID++

	if s.switcher != nil {
		tcb.Ctx = s.switcher.InitialContext(stack, entry, arg)
	}

	s.tcbs = append(s.tcbs, tcb)

	return tcb.TID
}

func (s *Scheduler) slotByTID(tid uint64) int {
	for i, t := range s.tcbs {
		if t.TID == tid {
			return i
		}
	}
	return -1
}

// CurrentTID returns the tid running on the given CPU.
func (s *Scheduler) CurrentTID(cpu int) uint64 {
	p := s.CPU(cpu)
	if p == nil {
		return 0
	}

	g := s.lock.Lock()
	defer g.Unlock()

	return s.tcbs[p.CurrentSlot].TID
}

// affinityPermits reports whether a thread's affinity mask allows cpu.
func affinityPermits(affinity uint64, cpu int) bool {
	return affinity == AnyCPU || affinity&(1<<uint(cpu)) != 0
}

// selectNext picks, in index order starting after current, the first
// Ready TCB whose affinity permits cpu; the CPU's idle slot is never
// picked here, Schedule falls back to it when this returns -1. It also
// reaps every Terminated TCB it walks past other than the current one
// (spec §9's proposed resolution to the deferred-reclamation Open
// Question: reap on the next schedule() call that observes a Terminated
// TCB other than the one being switched away from).
func (s *Scheduler) selectNext(cpu int, currentSlot int) int {
	n := len(s.tcbs)
	idleSlot := s.cpus[cpu].IdleSlot

	for step := 1; step <= n; step++ {
		idx := (currentSlot + step) % n
		if idx == idleSlot {
			continue
		}

		t := s.tcbs[idx]

		if idx != currentSlot && t.State == Terminated {
			s.reapSlot(idx)
			continue
		}

		if t.State == Ready && affinityPermits(t.Affinity, cpu) {
			return idx
		}
	}

	return -1
}

// reapSlot releases a terminated thread's stack; called only with the
// scheduler lock held.
func (s *Scheduler) reapSlot(idx int) {
	s.tcbs[idx].Stack = nil
}

// Schedule runs one scheduling decision on the calling CPU: it computes
// the (old, new) pair under the lock, releases the lock, then performs
// the low-level switch — the handoff pattern spec §4.6 requires so the
// switch primitive never executes with the scheduler lock held.
func (s *Scheduler) Schedule(cpu int) {
	p := s.CPU(cpu)
	if p == nil {
		return
	}

	g := s.lock.Lock()

	fromSlot := p.CurrentSlot
	from := s.tcbs[fromSlot]

	if from.State == Running {
		from.State = Ready
	}

	nextSlot := s.selectNext(cpu, fromSlot)
	if nextSlot < 0 {
		nextSlot = p.IdleSlot
	}

	to := s.tcbs[nextSlot]
	to.State = Running
	p.CurrentSlot = nextSlot

	atomic.AddUint64(&s.rcuGen, 1)

	g.Unlock()

	if s.switcher != nil && fromSlot != nextSlot {
		s.switcher.Switch(&from.Ctx, &to.Ctx)
	}
}

// YieldNow voluntarily gives up the remainder of the current thread's
// timeslice on cpu.
func (s *Scheduler) YieldNow(cpu int) {
	s.Schedule(cpu)
}

// Exit marks the calling thread Terminated and requests a reschedule.
// The outgoing stack is not freed synchronously; reclamation happens the
// next time selectNext walks past this slot (see reapSlot).
func (s *Scheduler) Exit(cpu int) {
	p := s.CPU(cpu)
	if p == nil {
		return
	}

	g := s.lock.Lock()
	s.tcbs[p.CurrentSlot].State = Terminated
	g.Unlock()

	s.Schedule(cpu)
}

// BlockOn parks the calling thread on the given wait token and
// reschedules. A Blocked TCB is referenced by exactly one wait queue
// (the caller's), identified by this token.
func (s *Scheduler) BlockOn(cpu int, wait uint64) {
	p := s.CPU(cpu)
	if p == nil {
		return
	}

	g := s.lock.Lock()
	t := s.tcbs[p.CurrentSlot]
	t.State = Blocked
	t.WaitToken = wait
	g.Unlock()

	s.Schedule(cpu)
}

// Wake moves the thread parked on the given wait token back to Ready.
func (s *Scheduler) Wake(wait uint64) {
	g := s.lock.Lock()
	defer g.Unlock()

	for _, t := range s.tcbs {
		if t.State == Blocked && t.WaitToken == wait {
			t.State = Ready
			t.WaitToken = 0
			return
		}
	}
}

// RequestReschedule signals every other CPU via IPI to re-enter
// Schedule, used after a cross-CPU Wake so the woken thread is picked up
// promptly rather than waiting for that CPU's own next timer tick.
func (s *Scheduler) RequestReschedule(exceptCPU int) {
	if s.ipi == nil {
		return
	}

	for i := 0; i < s.ncpu; i++ {
		if i != exceptCPU {
			s.ipi.SendReschedule(i)
		}
	}
}

// schedulerYielder adapts Scheduler to sync.Yielder without requiring
// sync to import sched (it would otherwise cycle back through
// Spinlock).
type schedulerYielder struct{ s *Scheduler }

func (y schedulerYielder) Yield() {
	if p := currentCPU(); p != nil {
		y.s.YieldNow(p.CPUID)
	}
}

func (y schedulerYielder) Block(wait uint64) {
	if p := currentCPU(); p != nil {
		y.s.BlockOn(p.CPUID, wait)
	}
}

func (y schedulerYielder) Wake(wait uint64) { y.s.Wake(wait) }

// schedulerQuiescence adapts Scheduler to sync.QuiescenceTracker: the
// RCU generation counter is bumped on every Schedule() call on any CPU,
// and AllPassed reports true once the counter has advanced by more than
// ncpu since gen. It does not record which CPU made those calls, so
// enough Schedule() calls on a single CPU also end the grace period.
type schedulerQuiescence struct{ s *Scheduler }

func (q schedulerQuiescence) Generation() uint64 {
	return atomic.LoadUint64(&q.s.rcuGen)
}

func (q schedulerQuiescence) AllPassed(gen uint64) bool {
	return atomic.LoadUint64(&q.s.rcuGen) > gen+uint64(q.s.ncpu)
}
