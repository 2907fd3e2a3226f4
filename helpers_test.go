// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statickey_test

import (
	"errors"
	"testing"
	"unsafe"

	"code.hybscloud.com/statickey"
	"code.hybscloud.com/statickey/arch"
	"code.hybscloud.com/statickey/internal/codetest"
	"code.hybscloud.com/statickey/patch"
)

// slotSize is the spacing of simulated branch sites. Each slot holds the
// site instruction at +0 and its jump target at +8.
const slotSize = 16

// codeArena is writable memory outside the Go heap standing in for a text
// segment. With the Direct patcher and an explicit codec, the whole update
// path runs on any GOOS/GOARCH without touching executable pages.
type codeArena struct {
	codec arch.Codec
	buf   []byte
	next  int
}

func newArena(t *testing.T, codec arch.Codec, slots int) *codeArena {
	t.Helper()
	return &codeArena{codec: codec, buf: codetest.Map(t, max(slots, 1)*slotSize)}
}

// site is one guarded branch emitted into the arena.
type site struct {
	arena      *codeArena
	off        int
	code       uintptr
	target     uintptr
	likelyTrue bool
}

// emit lays out a branch site for key in its initial layout and registers
// it in s.
func (a *codeArena) emit(t *testing.T, s *statickey.Section, key *statickey.Key, likelyTrue bool) site {
	t.Helper()
	off := a.next * slotSize
	a.next++
	code := uintptr(unsafe.Pointer(&a.buf[off]))
	target := code + 8

	kind := arch.KindOf(key.InitialEnabled(), likelyTrue)
	copy(a.buf[off:], a.codec.Encode(kind, code, target))

	if err := s.Add(key, code, target, likelyTrue); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return site{arena: a, off: off, code: code, target: target, likelyTrue: likelyTrue}
}

// insn aliases the site instruction in the arena.
func (s site) insn() []byte {
	return s.arena.buf[s.off : s.off+s.arena.codec.Len()]
}

// eval runs the branch the way the CPU would: fall through to the likely
// branch on NOP, take the other branch on a jump to the site's target.
func (s site) eval(t *testing.T) bool {
	t.Helper()
	kind, target, err := s.arena.codec.Decode(s.insn(), s.code)
	if err != nil {
		t.Fatalf("site %#x: %v", s.code, err)
	}
	if kind == arch.Nop {
		return s.likelyTrue
	}
	if target != s.target {
		t.Fatalf("site %#x: jump to %#x, want %#x", s.code, target, s.target)
	}
	return !s.likelyTrue
}

// bytes returns a copy of the site instruction.
func (s site) bytes() []byte {
	return append([]byte(nil), s.insn()...)
}

// countingPatcher forwards to Direct and counts writes.
type countingPatcher struct {
	writes int
}

func (p *countingPatcher) WriteCode(addr uintptr, code []byte) error {
	p.writes++
	return patch.Direct{}.WriteCode(addr, code)
}

var errInjected = errors.New("injected protection failure")

// failingPatcher fails every write.
type failingPatcher struct{}

func (failingPatcher) WriteCode(addr uintptr, code []byte) error {
	return &patch.Error{Op: "mprotect rwx", Addr: addr, Err: errInjected}
}
