// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build windows && amd64

package statickey

// The PE/COFF linker stores descriptor offsets as 32-bit relocations.

func relocate(field, off uintptr) uintptr {
	return relocate32(field, off)
}

func offsetOf(field, addr uintptr) (uintptr, bool) {
	return offsetOf32(field, addr)
}
