// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build riscv64

package asm

// FlushICache makes [addr, addr+n) fetchable on every hart.
//
// FENCE.I only synchronises the local hart; where the kernel offers
// riscv_flush_icache, the remote harts are shot down as well.
func FlushICache(addr, n uintptr) {
	fenceI()
	flushRemote(addr, n)
}

//go:noescape
func fenceI()
