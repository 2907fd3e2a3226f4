// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build windows

package patch

import (
	"golang.org/x/sys/windows"

	"code.hybscloud.com/statickey/internal/mem"
)

var (
	modkernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procFlushInstructionCache = modkernel32.NewProc("FlushInstructionCache")
)

// VirtualProtect patches code by flipping the covering pages to
// PAGE_EXECUTE_READWRITE, writing, restoring the previous protection and
// flushing the instruction cache for the range.
type VirtualProtect struct{}

// WriteCode copies code to addr under a temporary RWX protection.
func (p VirtualProtect) WriteCode(addr uintptr, code []byte) error {
	return writeVia(p, addr, code, mem.Copy)
}

// MakeWritable flips the pages covering [addr, addr+n) to
// PAGE_EXECUTE_READWRITE. The restore function reinstates the original
// protection and calls FlushInstructionCache.
func (VirtualProtect) MakeWritable(addr, n uintptr) (func() error, error) {
	start, length := mem.PageRange(addr, n)
	var old uint32
	if err := windows.VirtualProtect(start, length, windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return nil, &Error{Op: "VirtualProtect rwx", Addr: start, Err: err}
	}
	return func() error {
		var prev uint32
		if err := windows.VirtualProtect(start, length, old, &prev); err != nil {
			return &Error{Op: "VirtualProtect restore", Addr: start, Err: err}
		}
		return flushInstructionCache(addr, n)
	}, nil
}

func flushInstructionCache(addr, n uintptr) error {
	r1, _, e1 := procFlushInstructionCache.Call(uintptr(windows.CurrentProcess()), addr, n)
	if r1 == 0 {
		return &Error{Op: "FlushInstructionCache", Addr: addr, Err: e1}
	}
	return nil
}

// Default returns VirtualProtect.
func Default() Patcher {
	return VirtualProtect{}
}

// DefaultProtector returns VirtualProtect.
func DefaultProtector() Protector {
	return VirtualProtect{}
}
