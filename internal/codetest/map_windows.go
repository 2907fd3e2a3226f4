// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build windows

package codetest

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// nearHeap bounds the distance from the Go heap. On windows/amd64
// descriptors store 32-bit offsets, so code must stay within ±2 GiB of the
// section and its keys.
const nearHeap = 1 << 30

// mapAnon reserves memory a little above the Go heap, stepping by 16 MiB
// until a free range is found.
func mapAnon(n int) ([]byte, func() error, error) {
	anchor := uintptr(unsafe.Pointer(new([64]byte))) &^ (1<<16 - 1)
	var (
		addr uintptr
		err  error
	)
	for step := uintptr(1); step*16<<20 < nearHeap; step++ {
		addr, err = windows.VirtualAlloc(anchor+step*16<<20, uintptr(n),
			windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, nil, err
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	return b, func() error { return windows.VirtualFree(addr, 0, windows.MEM_RELEASE) }, nil
}
