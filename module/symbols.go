// Kernel exported symbol table
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package module implements the dynamic loader for position-dependent
// relocatable ELF64 object modules executing in the kernel's address
// space: section placement, symbol resolution, per-architecture
// relocation application, the PLT trampoline table, and module
// lifecycle (spec §4.7-4.8).
package module

import (
	"sync"

	"github.com/usbarmory/virtcore/kernelerr"
)

// SymbolTable is the single, process-global mapping from exported symbol
// name to virtual address. It is not IRQ-safe: callers must never touch
// it from an interrupt handler (spec §5).
type SymbolTable struct {
	mu      sync.Mutex
	entries map[string]uint64
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{entries: make(map[string]uint64)}
}

// Register adds name -> addr. Registering an existing name overwrites its
// address (kernel init and loaded modules both call this; modules are
// responsible for not colliding with kernel-exported names).
func (t *SymbolTable) Register(name string, addr uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[name] = addr
}

// Lookup returns the address for name, or ok=false if unregistered.
func (t *SymbolTable) Lookup(name string) (addr uint64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	addr, ok = t.entries[name]
	return
}

// Unregister removes name from the table. Used by module unload when
// retiring a module's exported symbols.
func (t *SymbolTable) Unregister(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, name)
}

// global is the kernel's single exported symbol table instance.
var global = NewSymbolTable()

// Global returns the process-global kernel symbol table.
func Global() *SymbolTable {
	return global
}

// errSymbolNotFound is returned when a strong relocation reference
// cannot be resolved against either the object's own symbols or the
// kernel table.
func errSymbolNotFound(name string) error {
	return kernelerr.New(kernelerr.NotFound, "module", "resolveSymbol", "unresolved symbol: "+name)
}
