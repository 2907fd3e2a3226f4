// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package patch

import (
	"golang.org/x/sys/unix"

	"code.hybscloud.com/statickey/internal/asm"
	"code.hybscloud.com/statickey/internal/mem"
)

// Mprotect patches code by flipping the covering pages to read-write-execute
// for the duration of the copy, then back to read-execute.
//
// The live pages are briefly writable and executable at once; use [Remap]
// or [MachRemap] where that window is not acceptable.
type Mprotect struct{}

// WriteCode copies code to addr under a temporary RWX mapping.
func (p Mprotect) WriteCode(addr uintptr, code []byte) error {
	return writeVia(p, addr, code, mem.Copy)
}

// MakeWritable flips the pages covering [addr, addr+n) to RWX. The restore
// function flips them to RX and invalidates the instruction cache.
func (Mprotect) MakeWritable(addr, n uintptr) (func() error, error) {
	start, length := mem.PageRange(addr, n)
	pages := mem.Bytes(start, int(length))
	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return nil, &Error{Op: "mprotect rwx", Addr: start, Err: err}
	}
	return func() error {
		if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_EXEC); err != nil {
			return &Error{Op: "mprotect rx", Addr: start, Err: err}
		}
		asm.FlushICache(addr, n)
		return nil
	}, nil
}
