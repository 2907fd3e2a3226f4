// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !(windows && amd64)

package statickey

// relocate adds a full-width field-relative offset to the field address.
func relocate(field, off uintptr) uintptr {
	return field + off
}

// offsetOf is the inverse of relocate.
func offsetOf(field, addr uintptr) (uintptr, bool) {
	return addr - field, true
}
