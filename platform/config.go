// Platform configuration assembly
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package platform assembles the platform-config database (spec §4.1,
// §3): UART, interrupt controller, timer and CPU count, probed from the
// device tree with board-module fallbacks and an optional YAML override
// layer for QEMU-harness iteration. The result is published once and
// read without locking thereafter.
package platform

import (
	"sync"

	"github.com/usbarmory/virtcore/dtb"
	"github.com/usbarmory/virtcore/kernelerr"
)

// UART describes the console UART.
type UART struct {
	Base  uint64
	IRQ   int
	Clock uint64
}

// GIC describes an ARM Generic Interrupt Controller.
type GIC struct {
	DistributorBase  uint64
	CPUInterfaceBase uint64
	Version          int
}

// PLIC describes a RISC-V Platform-Level Interrupt Controller.
type PLIC struct {
	Base        uint64
	Size        uint64
	NumSources  int
	NumContexts int
}

// CLINT describes a RISC-V Core-Local Interruptor (optional).
type CLINT struct {
	Base uint64
	Size uint64
}

// Timer describes the system timer.
type Timer struct {
	Type string
	Freq uint64
	IRQ  int
}

// Config is the assembled platform configuration. GIC and PLIC are
// mutually exclusive (one architecture's interrupt controller); CLINT is
// optional even on RISC-V.
type Config struct {
	UART     UART
	GIC      *GIC
	PLIC     *PLIC
	CLINT    *CLINT
	Timer    Timer
	CPUCount int
}

// Board is a registered board module supplying fallback constants when a
// device is absent from, or cannot be fully decoded from, the DTB. Board
// selection matches the root node's "compatible" property against a
// board's Compatible list.
type Board struct {
	Name       string
	Compatible []string
	Defaults   Config
}

var (
	registryMu sync.Mutex
	registry   []*Board
)

// RegisterBoard adds a board module to the registry. Called from board
// package init() functions.
func RegisterBoard(b *Board) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry = append(registry, b)
}

func matchBoard(root *dtb.Node) *Board {
	registryMu.Lock()
	defer registryMu.Unlock()

	for _, b := range registry {
		for _, c := range b.Compatible {
			if root.CompatibleContains(c) {
				return b
			}
		}
	}

	return nil
}

var (
	publishOnce sync.Once
	published   *Config
)

// Publish records cfg as the process-global platform configuration.
// Only the first call takes effect.
func Publish(cfg *Config) {
	publishOnce.Do(func() {
		published = cfg
	})
}

// Current returns the published Config, or nil before Assemble/Publish
// has run.
func Current() *Config {
	return published
}

// Assemble builds a Config by probing each logical device in the DTB,
// falling back to a matching board module's defaults, and applying an
// optional YAML override on top. Absence of a memory node or interrupt
// controller is Fatal; CLINT absence (e.g. on ARM64) is not.
func Assemble(blob *dtb.Blob, override *Config) (*Config, error) {
	root, err := blob.Tree()
	if err != nil {
		return nil, kernelerr.New(kernelerr.Fatal, "platform", "Assemble", err.Error())
	}

	board := matchBoard(root)

	cfg := &Config{}
	if board != nil {
		*cfg = board.Defaults
	}

	if _, _, err := blob.FindMemory(); err != nil {
		return nil, kernelerr.New(kernelerr.Fatal, "platform", "Assemble", "no /memory node")
	}

	if n, err := blob.FindUART(); err == nil {
		if tuples, err := n.Reg(); err == nil && len(tuples) > 0 {
			cfg.UART.Base = tuples[0].Address
		}
	}

	if n, err := blob.FindGIC(); err == nil {
		if tuples, err := n.Reg(); err == nil && len(tuples) >= 2 {
			cfg.GIC = &GIC{
				DistributorBase:  tuples[0].Address,
				CPUInterfaceBase: tuples[1].Address,
				Version:          3,
			}
		}
	} else if n, err := blob.FindPLIC(); err == nil {
		if tuples, err := n.Reg(); err == nil && len(tuples) > 0 {
			cfg.PLIC = &PLIC{Base: tuples[0].Address, Size: tuples[0].Size}
		}
	}

	if cfg.GIC == nil && cfg.PLIC == nil {
		return nil, kernelerr.New(kernelerr.Fatal, "platform", "Assemble", "no interrupt controller")
	}

	if n, err := blob.FindCLINT(); err == nil {
		if tuples, err := n.Reg(); err == nil && len(tuples) > 0 {
			cfg.CLINT = &CLINT{Base: tuples[0].Address, Size: tuples[0].Size}
		}
	}

	if count, err := blob.CountCPUs(); err == nil {
		cfg.CPUCount = count
	} else if cfg.CPUCount == 0 {
		cfg.CPUCount = 1
	}

	applyOverride(cfg, override)

	return cfg, nil
}

// applyOverride copies any non-zero field from override into cfg,
// replacing the value DTB discovery or board defaults put there; zero
// fields leave cfg unchanged.
func applyOverride(cfg *Config, override *Config) {
	if override == nil {
		return
	}

	if override.UART.Base != 0 {
		cfg.UART.Base = override.UART.Base
	}
	if override.UART.IRQ != 0 {
		cfg.UART.IRQ = override.UART.IRQ
	}
	if override.UART.Clock != 0 {
		cfg.UART.Clock = override.UART.Clock
	}
	if override.GIC != nil {
		cfg.GIC = override.GIC
	}
	if override.PLIC != nil {
		cfg.PLIC = override.PLIC
	}
	if override.CLINT != nil {
		cfg.CLINT = override.CLINT
	}
	if override.Timer.Type != "" {
		cfg.Timer.Type = override.Timer.Type
	}
	if override.Timer.Freq != 0 {
		cfg.Timer.Freq = override.Timer.Freq
	}
	if override.Timer.IRQ != 0 {
		cfg.Timer.IRQ = override.Timer.IRQ
	}
	if override.CPUCount != 0 {
		cfg.CPUCount = override.CPUCount
	}
}
