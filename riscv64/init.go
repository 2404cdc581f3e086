// RISC-V64 early bring-up hook
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package riscv64

import (
	_ "unsafe"
)

// Init runs before the Go runtime's own World start. Sv39 MMU bring-up
// and scheduler wiring happen later in boot once a Layout is available.
//
//go:linkname Init runtime/goos.Hwinit0
func Init() {}
