// ARM64 floating-point support
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package arm64

// defined in fp.s
func fp_enable()

// EnableFP activates floating-point and SIMD operations for this core.
func (cpu *CPU) EnableFP() {
	fp_enable()
}
