// YAML platform-config override file
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package platform

import (
	"gopkg.in/yaml.v3"

	"github.com/usbarmory/virtcore/kernelerr"
)

// overrideFile is the on-disk shape of an optional development-time
// override, letting an operator iterating on the QEMU virt machine
// definition adjust UART/timer/CPU-count without recompiling. Each
// non-zero field it sets replaces the value from DTB discovery or board
// defaults (see applyOverride).
type overrideFile struct {
	UART *struct {
		Base  uint64 `yaml:"base"`
		IRQ   int    `yaml:"irq"`
		Clock uint64 `yaml:"clock"`
	} `yaml:"uart"`

	Timer *struct {
		Type string `yaml:"type"`
		Freq uint64 `yaml:"freq"`
		IRQ  int    `yaml:"irq"`
	} `yaml:"timer"`

	CPUCount int `yaml:"cpu_count"`
}

// ParseOverrideYAML decodes a YAML override document into a Config
// suitable for passing to Assemble. Zero-valued fields are left
// untouched by applyOverride.
func ParseOverrideYAML(doc []byte) (*Config, error) {
	var f overrideFile

	if err := yaml.Unmarshal(doc, &f); err != nil {
		return nil, kernelerr.New(kernelerr.InvalidInput, "platform", "ParseOverrideYAML", err.Error())
	}

	cfg := &Config{}

	if f.UART != nil {
		cfg.UART = UART{Base: f.UART.Base, IRQ: f.UART.IRQ, Clock: f.UART.Clock}
	}

	if f.Timer != nil {
		cfg.Timer = Timer{Type: f.Timer.Type, Freq: f.Timer.Freq, IRQ: f.Timer.IRQ}
	}

	cfg.CPUCount = f.CPUCount

	return cfg, nil
}
