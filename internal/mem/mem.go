// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mem is the raw-memory boundary of statickey.
//
// Every read or write of a branch site, a descriptor or a key by address
// goes through this package. Callers own the validity of the addresses:
// they must point into mappings that outlive the call and, for writes,
// that are currently writable.
package mem

import (
	"encoding/binary"
	"os"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// Bytes returns a slice aliasing n bytes at addr.
func Bytes(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// Copy writes b at addr with ordinary stores.
func Copy(addr uintptr, b []byte) {
	copy(Bytes(addr, len(b)), b)
}

// AtomicSpan reports whether [addr, addr+n) fits in one naturally aligned
// 8-byte or 16-byte word, the ranges WriteWordAtomic can publish.
func AtomicSpan(addr, n uintptr) bool {
	return addr+n <= addr&^15+16
}

// WriteWordAtomic splices b into the naturally aligned 8-byte word, or
// failing that the 16-byte word, that contains [addr, addr+len(b)), and
// publishes the whole word with one locked compare-and-swap.
//
// The swap uses acquire-release ordering, the strongest atomix offers; as
// a locked read-modify-write it is sequentially consistent on x86
// (LOCK CMPXCHG) and arm64 (CASAL/CASPAL). Readers of the word, including
// instruction fetch, observe either the old or the new bytes, never a mix.
// Bytes of the word outside the range are preserved. Reports false,
// writing nothing, when the range fails AtomicSpan.
func WriteWordAtomic(addr uintptr, b []byte) bool {
	n := uintptr(len(b))

	if base := addr &^ 7; addr+n <= base+8 {
		w := (*atomix.Uint64)(unsafe.Pointer(base))
		var buf [8]byte
		for {
			old := w.LoadAcquire()
			binary.NativeEndian.PutUint64(buf[:], old)
			copy(buf[addr-base:], b)
			if w.CompareAndSwapAcqRel(old, binary.NativeEndian.Uint64(buf[:])) {
				return true
			}
		}
	}

	if !AtomicSpan(addr, n) {
		return false
	}
	base := addr &^ 15
	w := (*atomix.Uint128)(unsafe.Pointer(base))
	var buf [16]byte
	for {
		// lo is the word at base, hi the word at base+8
		lo, hi := w.LoadAcquire()
		binary.NativeEndian.PutUint64(buf[:8], lo)
		binary.NativeEndian.PutUint64(buf[8:], hi)
		copy(buf[addr-base:], b)
		newLo := binary.NativeEndian.Uint64(buf[:8])
		newHi := binary.NativeEndian.Uint64(buf[8:])
		if w.CompareAndSwapAcqRel(lo, hi, newLo, newHi) {
			return true
		}
	}
}

// PageSize returns the system page size.
func PageSize() uintptr {
	return uintptr(os.Getpagesize())
}

// PageRange returns the page-aligned span covering [addr, addr+n).
func PageRange(addr, n uintptr) (start, length uintptr) {
	ps := PageSize()
	start = addr &^ (ps - 1)
	end := (addr + n + ps - 1) &^ (ps - 1)
	return start, end - start
}
