// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statickey

import "math"

// relocate32 adds a 32-bit field-relative offset to the field address.
// Only the low 32 bits of off are meaningful; they are sign-extended, the
// way a PE/COFF REL32 relocation is applied.
func relocate32(field, off uintptr) uintptr {
	return field + uintptr(int64(int32(uint32(off))))
}

// offsetOf32 is the inverse of relocate32. Reports false when the distance
// does not fit in 32 signed bits.
func offsetOf32(field, addr uintptr) (uintptr, bool) {
	d := int64(int(addr - field))
	if d < math.MinInt32 || d > math.MaxInt32 {
		return 0, false
	}
	return uintptr(d), true
}
