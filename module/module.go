// Module record and lifecycle
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package module

import (
	"bytes"
	"debug/elf"
	"sync"

	"github.com/usbarmory/virtcore/kernelerr"
	"github.com/usbarmory/virtcore/mem"
)

// State is the lifecycle state of a loaded module.
type State int

const (
	Loading State = iota
	Live
	Unloading
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Live:
		return "live"
	case Unloading:
		return "unloading"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Module is a loaded relocatable object's lifecycle record.
type Module struct {
	Name  string
	State State

	Base   uint64
	Length uint64

	PLTBase    uint64
	PLTEntries int

	Exported []string

	RefCount int32

	InitFn uint64
	ExitFn uint64

	pages int
	plt   *PLT

	// deps is the set of modules this module resolved symbols from;
	// their refcounts are decremented on this module's unload.
	deps []*Module
}

// FrameSource is the capability the loader uses to obtain the
// contiguous physical range backing a module.
type FrameSource interface {
	AllocFrames(n int) (addr uint64, ok bool)
	FreeFrames(addr uint64, n int) error
}

// EntryCaller invokes a loaded function's entry point (module_init /
// module_exit), both of which take no arguments and return an int32.
// No implementation lives in this module; with a nil Caller, Load treats
// module_init as having returned 0 and Unload skips module_exit.
type EntryCaller interface {
	Call(addr uint64) int32
}

// Loader owns the dependencies needed to load/unload modules: frame
// allocation, the kernel symbol table, the arch capability, and the
// entry-point caller.
type Loader struct {
	mu sync.Mutex

	Frames  FrameSource
	Symbols *SymbolTable
	Arch    Arch
	Caller  EntryCaller

	modules []*Module
}

// NewLoader creates a Loader with the given collaborators.
func NewLoader(frames FrameSource, symbols *SymbolTable, arch Arch, caller EntryCaller) *Loader {
	return &Loader{Frames: frames, Symbols: symbols, Arch: arch, Caller: caller}
}

const pltPages = 1

// Load parses data as an ELF64 relocatable object, places its loadable
// sections, resolves symbols, applies relocations, flushes the
// instruction cache, and calls module_init.
func (l *Loader) Load(name string, data []byte) (*Module, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, kernelerr.New(kernelerr.InvalidInput, "module", "Load", "invalid ELF: "+err.Error())
	}

	if f.Class != elf.ELFCLASS64 {
		return nil, kernelerr.New(kernelerr.InvalidInput, "module", "Load", "not ELF64")
	}

	if f.Type != elf.ET_REL {
		return nil, kernelerr.New(kernelerr.InvalidInput, "module", "Load", "not a relocatable object")
	}

	if f.Machine != l.Arch.Machine() {
		return nil, kernelerr.New(kernelerr.Unsupported, "module", "Load", "ELF machine mismatch")
	}

	layout, err := planSections(f)
	if err != nil {
		return nil, err
	}

	totalPages := pltPages + layout.pages()

	base, ok := l.Frames.AllocFrames(totalPages)
	if !ok {
		return nil, kernelerr.New(kernelerr.OutOfMemory, "module", "Load", "no contiguous frames available")
	}

	image := mem.Bytes(base, totalPages*mem.PageSize)
	for i := range image {
		image[i] = 0
	}

	pltBase := base
	sectionsBase := base + pltPages*mem.PageSize

	loadedBase := make(map[int]uint64, len(layout.sections))

	for _, s := range layout.sections {
		secAddr := sectionsBase + s.offset
		loadedBase[s.index] = secAddr

		if s.name != ".bss" {
			data, err := f.Sections[s.index].Data()
			if err != nil {
				l.Frames.FreeFrames(base, totalPages)
				return nil, kernelerr.New(kernelerr.InvalidInput, "module", "Load", "section read: "+err.Error())
			}
			copy(image[secAddr-base:], data)
		}
	}

	defined, err := definedSymbols(f, loadedBase)
	if err != nil {
		l.Frames.FreeFrames(base, totalPages)
		return nil, err
	}

	relocsBySection, deps, err := l.resolveRelocations(f, loadedBase, defined)
	if err != nil {
		l.Frames.FreeFrames(base, totalPages)
		return nil, err
	}

	plt := NewPLT(pltBase, image[:pltPages*mem.PageSize], DefaultPLTEntries, l.Arch.WritePLTStub)

	for secIdx, relocs := range relocsBySection {
		secAddr := loadedBase[secIdx]
		secLen := int(layout.sectionByIndex(secIdx).size)
		segment := image[secAddr-base : secAddr-base+uint64(secLen)]

		if err := l.Arch.ApplyRelocations(segment, secAddr, relocs, plt); err != nil {
			l.Frames.FreeFrames(base, totalPages)
			return nil, err
		}
	}

	codeAddr, codeLen := layout.codeRange(sectionsBase)
	l.Arch.FlushICache([]ICacheRange{
		{Addr: codeAddr, Length: codeLen},
		{Addr: pltBase, Length: pltPages * mem.PageSize},
	})

	mod := &Module{
		Name:       name,
		State:      Loading,
		Base:       base,
		Length:     uint64(totalPages * mem.PageSize),
		PLTBase:    pltBase,
		PLTEntries: plt.Entries(),
		pages:      totalPages,
		plt:        plt,
		deps:       deps,
	}

	for _, dep := range deps {
		dep.RefCount++
	}

	if initAddr, ok := defined["module_init"]; ok {
		mod.InitFn = initAddr
	} else {
		l.Frames.FreeFrames(base, totalPages)
		return nil, kernelerr.New(kernelerr.NotFound, "module", "Load", "missing module_init")
	}

	if exitAddr, ok := defined["module_exit"]; ok {
		mod.ExitFn = exitAddr
	}

	for n, addr := range defined {
		if n == "module_init" || n == "module_exit" || n == "module_name" || n == "module_version" {
			continue
		}
		l.Symbols.Register(n, addr)
		mod.Exported = append(mod.Exported, n)
	}

	var rc int32
	if l.Caller != nil {
		rc = l.Caller.Call(mod.InitFn)
	}

	if rc == 0 {
		mod.State = Live
	} else {
		mod.State = Failed
		for _, n := range mod.Exported {
			l.Symbols.Unregister(n)
		}
		l.Frames.FreeFrames(base, totalPages)
	}

	l.mu.Lock()
	l.modules = append(l.modules, mod)
	l.mu.Unlock()

	return mod, nil
}

// Unload tears down a Live module with a zero refcount, decrementing
// refcounts on the modules it depended on. It refuses (Busy) if the
// module's refcount is non-zero, or if unexporting any of its symbols
// would leave another live module's dependency unresolved — spec §9's
// conservative resolution to the unspecified unload-symbol-removal
// Open Question.
func (l *Loader) Unload(mod *Module) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if mod.State != Live {
		return kernelerr.New(kernelerr.InvalidInput, "module", "Unload", "module is not live")
	}

	if mod.RefCount != 0 {
		return kernelerr.New(kernelerr.Busy, "module", "Unload", "module has live dependents")
	}

	mod.State = Unloading

	if l.Caller != nil && mod.ExitFn != 0 {
		l.Caller.Call(mod.ExitFn)
	}

	for _, n := range mod.Exported {
		l.Symbols.Unregister(n)
	}

	for _, dep := range mod.deps {
		dep.RefCount--
	}

	if err := l.Frames.FreeFrames(mod.Base, mod.pages); err != nil {
		return err
	}

	for i, m := range l.modules {
		if m == mod {
			l.modules = append(l.modules[:i], l.modules[i+1:]...)
			break
		}
	}

	return nil
}

// Info returns the record for a loaded module.
func (l *Loader) Info(mod *Module) Module {
	return *mod
}
