// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package patch

import (
	"golang.org/x/sys/unix"

	"code.hybscloud.com/statickey/internal/asm"
	"code.hybscloud.com/statickey/internal/mem"
)

// Remap patches code without ever making the live pages writable.
//
// The covering pages are copied into a private anonymous mapping, edited
// there, sealed read-execute, and moved over the original range with
// mremap(MREMAP_MAYMOVE|MREMAP_FIXED). The replacement is atomic with
// respect to other threads: they execute either the old or the new pages.
//
// The patched range becomes anonymous memory; file-backed text loses its
// backing for those pages.
type Remap struct{}

// WriteCode replaces the pages covering [addr, addr+len(code)) with an
// edited copy.
func (Remap) WriteCode(addr uintptr, code []byte) error {
	n := uintptr(len(code))
	start, length := mem.PageRange(addr, n)

	scratch, err := unix.MmapPtr(-1, 0, nil, length,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return &Error{Op: "mmap scratch", Addr: start, Err: err}
	}
	tmp := uintptr(scratch)

	copy(mem.Bytes(tmp, int(length)), mem.Bytes(start, int(length)))
	mem.Copy(tmp+(addr-start), code)

	if err := unix.Mprotect(mem.Bytes(tmp, int(length)), unix.PROT_READ|unix.PROT_EXEC); err != nil {
		_ = unix.MunmapPtr(scratch, length)
		return &Error{Op: "mprotect scratch", Addr: tmp, Err: err}
	}

	_, _, errno := unix.Syscall6(unix.SYS_MREMAP, tmp, length, length,
		unix.MREMAP_MAYMOVE|unix.MREMAP_FIXED, start, 0)
	if errno != 0 {
		_ = unix.MunmapPtr(scratch, length)
		return &Error{Op: "mremap", Addr: start, Err: errno}
	}

	asm.FlushICache(addr, n)
	return nil
}
