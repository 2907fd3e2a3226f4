// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build loong64

package asm

// FlushICache issues IBAR 0, which orders all prior stores before
// subsequent instruction fetches on the calling core. The range is implied.
//
//go:noescape
func FlushICache(addr, n uintptr)
