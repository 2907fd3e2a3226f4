// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux && riscv64

package asm

import "golang.org/x/sys/unix"

// flushRemote asks the kernel to run FENCE.I on every hart of the process.
// Failure leaves only the local hart synchronised; the local FENCE.I has
// already run, so the error is ignored.
func flushRemote(addr, n uintptr) {
	_, _, _ = unix.Syscall(unix.SYS_RISCV_FLUSH_ICACHE, addr, addr+n, 0)
}
