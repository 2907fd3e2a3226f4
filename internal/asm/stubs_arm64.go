// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build arm64

package asm

// FlushICache cleans the data cache to the point of unification and
// invalidates the instruction cache for [addr, addr+n).
//
// The loop strides 16 bytes, the smallest line size CTR_EL0 can report,
// so every line of the range is visited at least once. Sequence:
//   - DC CVAU per line, DSB ISH
//   - IC IVAU per line, DSB ISH
//   - ISB
//
//go:noescape
func FlushICache(addr, n uintptr)
