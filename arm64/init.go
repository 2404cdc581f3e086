// ARM64 early bring-up hook
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

import (
	_ "unsafe"
)

// Init runs before the Go runtime's own World start, the earliest point
// bare-metal code can execute. It only enables the FPU and data/instruction
// caches; MMU bring-up and scheduler wiring happen later in the boot
// package once the device tree has been parsed and a Layout is available
// (spec §2 step ordering).
//
//go:linkname Init runtime/goos.Hwinit0
func Init() {
	fp_enable()
	cache_enable()
}
