// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statickey

import (
	"unsafe"
)

// Section is a descriptor array built at run time, for front-ends that
// emit branch sites themselves: JIT compilers, loaders of generated code,
// cgo or assembly shims without linker section support, and tests.
//
// Descriptors are written exactly as a linker would place them: relative
// offsets, key address tagged with the likely bit, preceded by one
// sentinel. A Section is therefore interchangeable with a linker section
// once a Table is built over it.
//
// Example:
//
//	s := statickey.NewSection(64)
//	// emit the site bytes at code, then register the site
//	_ = s.Add(&tracing, code, target, false)
//	t := s.Builder().Build()
//	t.Init()
type Section struct {
	entries []Descriptor
	n       int
	keys    []*Key
	sealed  bool
}

// NewSection creates a section with room for capacity branch sites.
//
// Panics if capacity < 0.
func NewSection(capacity int) *Section {
	if capacity < 0 {
		panic("statickey: capacity must be >= 0")
	}
	// entries[0] stays the zero descriptor: the sentinel
	return &Section{entries: make([]Descriptor, capacity+1), n: 1}
}

// Add registers a branch site.
//
//   - code: address of the NOP/jump instruction, already emitted in the
//     layout matching key.InitialEnabled()
//   - target: address the jump form branches to
//   - likelyTrue: whether the fall-through path is the true branch
//
// key must stay at its address for the process lifetime; the section keeps
// it reachable. Returns ErrSectionFull, ErrSectionSealed once a table was
// built, or ErrOffsetRange when an address is out of relocation reach.
func (s *Section) Add(key *Key, code, target uintptr, likelyTrue bool) error {
	if s.sealed {
		return ErrSectionSealed
	}
	if s.n == len(s.entries) {
		return ErrSectionFull
	}

	keyRef := uintptr(unsafe.Pointer(key))
	if likelyTrue {
		keyRef |= likelyTrueBit
	}

	d := &s.entries[s.n]
	c, ok1 := offsetOf(uintptr(unsafe.Pointer(&d.code)), code)
	g, ok2 := offsetOf(uintptr(unsafe.Pointer(&d.target)), target)
	k, ok3 := offsetOf(uintptr(unsafe.Pointer(&d.key)), keyRef)
	if !ok1 || !ok2 || !ok3 {
		return ErrOffsetRange
	}

	d.code, d.target, d.key = c, g, k
	s.keys = append(s.keys, key)
	s.n++
	return nil
}

// Len returns the number of descriptors, sentinel included.
func (s *Section) Len() int {
	return s.n
}

// Bounds returns the section's [start, stop) addresses.
func (s *Section) Bounds() (start, stop uintptr) {
	start = uintptr(unsafe.Pointer(&s.entries[0]))
	return start, start + uintptr(s.n)*descriptorSize
}

// Builder seals the section and returns a table builder over it. The built
// table keeps the section and its keys reachable.
func (s *Section) Builder() *Builder {
	s.sealed = true
	b := newBuilder(unsafe.Pointer(&s.entries[0]), s.n)
	b.opts.keep = s
	b.opts.keys = append(make([]*Key, 0, len(s.keys)), s.keys...)
	return b
}
