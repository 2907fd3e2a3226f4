// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statickey

import "unsafe"

// Descriptor records one branch site: where the patchable instruction is,
// where its jump goes, and which key owns it.
//
// In the section every field holds an offset relative to the field's own
// address, so the table is position independent. Table.Init rewrites the
// offsets to absolute addresses exactly once, then sorts descriptors in
// place.
//
// key carries the owning Key's address with bit 0 set when the likely
// branch is the true branch; Key alignment keeps that bit free.
//
// A descriptor with code == 0 is a sentinel and is skipped everywhere.
type Descriptor struct {
	code   uintptr
	target uintptr
	key    uintptr
}

// descriptorSize is the stride of the descriptor array.
const descriptorSize = unsafe.Sizeof(Descriptor{})

// descriptorAlign is the required alignment of the section start.
const descriptorAlign = unsafe.Alignof(Descriptor{})

const likelyTrueBit uintptr = 1

// CodeAddr returns the address of the patchable instruction.
func (d *Descriptor) CodeAddr() uintptr { return d.code }

// TargetAddr returns the address the jump form branches to.
func (d *Descriptor) TargetAddr() uintptr { return d.target }

// KeyAddr returns the address of the owning Key.
func (d *Descriptor) KeyAddr() uintptr { return d.key &^ likelyTrueBit }

// LikelyBranchIsTrue reports whether the fall-through path is the true
// branch.
func (d *Descriptor) LikelyBranchIsTrue() bool { return d.key&likelyTrueBit != 0 }

// IsSentinel reports whether d is the placeholder that keeps the section
// non-empty.
func (d *Descriptor) IsSentinel() bool { return d.code == 0 }

// resolve turns the three field-relative offsets into absolute addresses.
// The likely bit survives because field addresses are word aligned.
func (d *Descriptor) resolve() {
	d.code = relocate(uintptr(unsafe.Pointer(&d.code)), d.code)
	d.target = relocate(uintptr(unsafe.Pointer(&d.target)), d.target)
	d.key = relocate(uintptr(unsafe.Pointer(&d.key)), d.key)
}

// compareDescriptors orders by (key address, code address).
func compareDescriptors(a, b Descriptor) int {
	ak, bk := a.KeyAddr(), b.KeyAddr()
	switch {
	case ak < bk:
		return -1
	case ak > bk:
		return 1
	case a.code < b.code:
		return -1
	case a.code > b.code:
		return 1
	default:
		return 0
	}
}
