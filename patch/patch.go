// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package patch writes instruction bytes into executable memory.
//
// A [Patcher] makes new bytes visible to subsequent instruction fetches at
// an address, handling whatever the operating system requires: protection
// flips, page remapping and cache maintenance.
//
// Variants:
//
//   - [Direct]: plain copy, for environments where code is already writable
//   - [Mprotect] (unix): flip pages to RWX, copy, flip back to RX
//   - [Remap] (linux): edit a private copy, remap it over the live pages
//   - [MachRemap] (darwin, cgo): W^X-safe remap through mach_vm_remap
//   - [VirtualProtect] (windows): flip to PAGE_EXECUTE_READWRITE and back
//   - [Synced]: process-wide lock plus a single atomic word store
//
// [Default] returns the variant for the running OS.
//
// Patchers are not safe for concurrent writers unless noted. Errors leave
// the protection state undefined; callers treat them as fatal.
package patch

import (
	"fmt"

	"code.hybscloud.com/statickey/internal/mem"
)

// Patcher writes code bytes at an executable address.
type Patcher interface {
	// WriteCode stores code at addr so that the next instruction fetch
	// from [addr, addr+len(code)) sees it.
	WriteCode(addr uintptr, code []byte) error
}

// Protector makes a code range temporarily writable.
//
// MakeWritable returns a restore function that reinstates execute
// protection and performs the cache maintenance the platform needs.
type Protector interface {
	MakeWritable(addr, n uintptr) (restore func() error, err error)
}

// Error reports a failed memory operation.
type Error struct {
	Op   string
	Addr uintptr
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("patch: %s %#x: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Direct copies bytes with ordinary stores.
//
// The embedding environment guarantees the range is writable and that no
// one executes it concurrently.
type Direct struct{}

// WriteCode copies code to addr.
func (Direct) WriteCode(addr uintptr, code []byte) error {
	mem.Copy(addr, code)
	return nil
}

// MakeWritable is a no-op.
func (Direct) MakeWritable(addr, n uintptr) (func() error, error) {
	return func() error { return nil }, nil
}

func writeVia(p Protector, addr uintptr, code []byte, store func(uintptr, []byte)) error {
	restore, err := p.MakeWritable(addr, uintptr(len(code)))
	if err != nil {
		return err
	}
	store(addr, code)
	return restore()
}
