// ELF64 relocatable object parsing and section placement
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package module

import (
	"debug/elf"
	"encoding/binary"
	"strings"

	"github.com/usbarmory/virtcore/kernelerr"
	"github.com/usbarmory/virtcore/mem"
)

// loadableNames is the fixed set of sections the loader places, in the
// fixed order spec §4.7 step 2 mandates: .text (R+X), .rodata (R), .data
// (R+W), .bss (R+W, zero-filled, no file bytes).
var loadableNames = []string{".text", ".rodata", ".data", ".bss"}

type placedSection struct {
	index  int
	name   string
	offset uint64 // offset from the start of the sections region
	size   uint64
}

type sectionLayout struct {
	sections []placedSection
	total    uint64 // total bytes spanned by the sections region
}

func (l *sectionLayout) pages() int {
	return int((l.total + mem.PageSize - 1) / mem.PageSize)
}

func (l *sectionLayout) sectionByIndex(idx int) *placedSection {
	for i := range l.sections {
		if l.sections[i].index == idx {
			return &l.sections[i]
		}
	}
	return nil
}

// codeRange reports the address range of the .text section relative to
// sectionsBase, for the instruction-cache flush.
func (l *sectionLayout) codeRange(sectionsBase uint64) (addr uint64, length int) {
	for _, s := range l.sections {
		if s.name == ".text" {
			return sectionsBase + s.offset, int(s.size)
		}
	}
	return sectionsBase, 0
}

// planSections selects the loadable sections present in f, in canonical
// order, and assigns each a naturally-aligned offset within the module's
// sections region (the region that follows the PLT page).
func planSections(f *elf.File) (*sectionLayout, error) {
	layout := &sectionLayout{}

	var cursor uint64

	for _, name := range loadableNames {
		sec := f.Section(name)
		if sec == nil || sec.Size == 0 {
			continue
		}

		align := sec.Addralign
		if align == 0 {
			align = 8
		}

		cursor = (cursor + align - 1) &^ (align - 1)

		idx := sectionIndex(f, sec)
		if idx < 0 {
			continue
		}

		layout.sections = append(layout.sections, placedSection{
			index:  idx,
			name:   name,
			offset: cursor,
			size:   sec.Size,
		})

		cursor += sec.Size
	}

	if len(layout.sections) == 0 {
		return nil, kernelerr.New(kernelerr.InvalidInput, "module", "planSections", "no loadable sections")
	}

	layout.total = cursor

	return layout, nil
}

func sectionIndex(f *elf.File, sec *elf.Section) int {
	for i, s := range f.Sections {
		if s == sec {
			return i
		}
	}
	return -1
}

// definedSymbols returns every named symbol the object itself defines in
// one of its placed sections, whatever its type or binding, resolved to
// an absolute address against loadedBase (the placement plan from
// planSections).
func definedSymbols(f *elf.File, loadedBase map[int]uint64) (map[string]uint64, error) {
	syms, err := f.Symbols()
	if err != nil {
		// a relocatable object with no symbols at all (pure data blob)
		// is unusual but not invalid on its own; resolution simply
		// fails later if module_init is required and absent.
		return map[string]uint64{}, nil
	}

	defined := make(map[string]uint64)

	for _, sym := range syms {
		if sym.Name == "" || sym.Section == elf.SHN_UNDEF || int(sym.Section) >= len(f.Sections) {
			continue
		}

		base, ok := loadedBase[int(sym.Section)]
		if !ok {
			continue
		}

		defined[sym.Name] = base + sym.Value
	}

	return defined, nil
}

// relaEntry is one Elf64_Rela entry.
type relaEntry struct {
	offset uint64
	symbol uint32
	rtype  uint32
	addend int64
}

func parseRela(data []byte) []relaEntry {
	const entSize = 24
	n := len(data) / entSize

	out := make([]relaEntry, 0, n)

	for i := 0; i < n; i++ {
		b := data[i*entSize : (i+1)*entSize]

		info := binary.LittleEndian.Uint64(b[8:16])

		out = append(out, relaEntry{
			offset: binary.LittleEndian.Uint64(b[0:8]),
			symbol: uint32(info >> 32),
			rtype:  uint32(info),
			addend: int64(binary.LittleEndian.Uint64(b[16:24])),
		})
	}

	return out
}

// resolveRelocations walks every .rela.* section targeting a loaded
// section, resolves each entry's symbol reference (the object's own
// defined symbols first, then the global kernel table, per spec §4.7
// step 6 precedence), and groups the resulting Relocs by target section
// index. It also returns the set of already-loaded Modules referenced by
// any resolved-via-kernel-table symbol, for refcounting.
func (l *Loader) resolveRelocations(f *elf.File, loadedBase map[int]uint64, defined map[string]uint64) (map[int][]Reloc, []*Module, error) {
	syms, _ := f.Symbols()

	out := make(map[int][]Reloc)
	depSet := make(map[*Module]bool)

	for _, sec := range f.Sections {
		if !strings.HasPrefix(sec.Name, ".rela") {
			continue
		}

		targetName := strings.TrimPrefix(sec.Name, ".rela")
		target := f.Section(targetName)
		if target == nil {
			continue
		}

		targetIdx := sectionIndex(f, target)
		targetBase, ok := loadedBase[targetIdx]
		if !ok {
			continue
		}

		data, err := sec.Data()
		if err != nil {
			return nil, nil, kernelerr.New(kernelerr.InvalidInput, "module", "resolveRelocations", "rela read: "+err.Error())
		}

		for _, re := range parseRela(data) {
			var (
				resolved uint64
				name     string
			)

			if re.symbol != 0 && int(re.symbol) <= len(syms) {
				sym := syms[re.symbol-1]
				name = sym.Name

				if sym.Section != elf.SHN_UNDEF {
					if base, ok := loadedBase[int(sym.Section)]; ok {
						resolved = base + sym.Value
					}
				}
			}

			if resolved == 0 && name != "" {
				if addr, ok := defined[name]; ok {
					resolved = addr
				} else if addr, ok := l.Symbols.Lookup(name); ok {
					resolved = addr
					if dep := l.moduleOwning(addr); dep != nil {
						depSet[dep] = true
					}
				} else {
					return nil, nil, errSymbolNotFound(name)
				}
			}

			out[targetIdx] = append(out[targetIdx], Reloc{
				P:      targetBase + re.offset,
				Type:   re.rtype,
				Symbol: resolved,
				Addend: re.addend,
			})
		}
	}

	deps := make([]*Module, 0, len(depSet))
	for m := range depSet {
		deps = append(deps, m)
	}

	return out, deps, nil
}

// moduleOwning returns the already-loaded module that exports a symbol at
// addr, if any, so Load can track a cross-module dependency edge.
func (l *Loader) moduleOwning(addr uint64) *Module {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range l.modules {
		if addr >= m.Base && addr < m.Base+m.Length {
			return m
		}
	}

	return nil
}
