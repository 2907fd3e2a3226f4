// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build windows && amd64

package statickey_test

import (
	"errors"
	"testing"
	"unsafe"

	"code.hybscloud.com/statickey"
	"code.hybscloud.com/statickey/arch"
)

// TestSectionRel32RoundTrip registers sites mapped near the heap, so the
// offsets from the heap-allocated section fit 32 bits, and checks they
// resolve to the same addresses.
func TestSectionRel32RoundTrip(t *testing.T) {
	key := statickey.NewFalseKey()
	a := newArena(t, arch.AMD64{}, 2)
	s := statickey.NewSection(2)
	first := a.emit(t, s, &key, false)
	second := a.emit(t, s, &key, true)

	start, _ := s.Bounds()
	tbl := s.Builder().Codec(arch.AMD64{}).Patcher(&countingPatcher{}).Build()
	tbl.Init()

	ds := tbl.Descriptors()
	if len(ds) != 3 || !ds[0].IsSentinel() {
		t.Fatalf("Descriptors: got %d entries, want sentinel plus 2", len(ds))
	}
	for i, want := range []site{first, second} {
		d := ds[i+1]
		if d.CodeAddr() != want.code || d.TargetAddr() != want.target {
			t.Fatalf("descriptor %d: code %#x target %#x, want %#x %#x (section at %#x)",
				i+1, d.CodeAddr(), d.TargetAddr(), want.code, want.target, start)
		}
		if d.KeyAddr() != uintptr(unsafe.Pointer(&key)) {
			t.Fatalf("descriptor %d: key %#x, want %#p", i+1, d.KeyAddr(), &key)
		}
		if d.LikelyBranchIsTrue() != want.likelyTrue {
			t.Fatalf("descriptor %d: likely bit lost", i+1)
		}
	}

	key.Enable()
	if !first.eval(t) || !second.eval(t) {
		t.Fatalf("after Enable: got (%v, %v), want (true, true)", first.eval(t), second.eval(t))
	}
	if err := key.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

// TestSectionRel32OutOfReach checks that a site no 32-bit relocation can
// reach from the heap-allocated section is rejected.
func TestSectionRel32OutOfReach(t *testing.T) {
	key := statickey.NewFalseKey()
	s := statickey.NewSection(1)

	start, _ := s.Bounds()
	far := start - 1<<32
	if err := s.Add(&key, far, far+8, false); !errors.Is(err, statickey.ErrOffsetRange) {
		t.Fatalf("Add %#x from section at %#x: got %v, want ErrOffsetRange", far, start, err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len after rejected Add: got %d, want 1", s.Len())
	}
}
