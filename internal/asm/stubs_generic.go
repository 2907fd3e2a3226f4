// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !arm64 && !riscv64 && !loong64

package asm

// FlushICache is a no-op on architectures with coherent instruction caches.
func FlushICache(addr, n uintptr) {}
