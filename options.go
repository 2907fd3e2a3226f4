// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statickey

import (
	"fmt"
	"log/slog"
	"unsafe"

	"code.hybscloud.com/statickey/arch"
	"code.hybscloud.com/statickey/patch"
)

// Options configures table creation.
type Options struct {
	codec   arch.Codec
	patcher patch.Patcher
	logger  *slog.Logger

	// Keeps a Go-allocated section reachable for the table's lifetime
	keep any
	// Keys registered in a Go-allocated section; nil for linker sections
	keys []*Key
}

// Builder creates tables with fluent configuration.
//
// Example:
//
//	// Linker-provided section, host codec and OS patcher
//	t := statickey.New(start, stop).Build()
//
//	// Explicit codec and W^X-safe patcher
//	t := statickey.New(start, stop).Codec(arch.ARM64{}).Patcher(patch.Remap{}).Build()
type Builder struct {
	base unsafe.Pointer
	n    int
	opts Options
}

// New creates a table builder over the descriptor array [start, stop).
//
// start and stop are the section boundary symbols supplied by the linker
// (__start___static_keys / __stop___static_keys on ELF,
// section$start$__DATA$__static_keys / section$end$__DATA$__static_keys on
// Mach-O, the .stks$a / .stks$c markers on PE). They are taken as pointers
// so the table never rebuilds a pointer from an integer address.
//
// Panics if the range is inverted, start is misaligned, or the length is
// not a whole number of descriptors: the section layout is a build
// configuration error, not a runtime condition.
func New(start, stop unsafe.Pointer) *Builder {
	lo, hi := uintptr(start), uintptr(stop)
	if hi < lo {
		panic(fmt.Sprintf("statickey: section bounds inverted: %#x > %#x", lo, hi))
	}
	if lo%descriptorAlign != 0 {
		panic(fmt.Sprintf("statickey: section start %#x not %d-byte aligned", lo, descriptorAlign))
	}
	if (hi-lo)%descriptorSize != 0 {
		panic(fmt.Sprintf("statickey: section length %d not a multiple of %d", hi-lo, descriptorSize))
	}
	return newBuilder(start, int((hi-lo)/descriptorSize))
}

func newBuilder(base unsafe.Pointer, n int) *Builder {
	return &Builder{base: base, n: n}
}

// Codec sets the instruction codec. Default: arch.Host.
func (b *Builder) Codec(c arch.Codec) *Builder {
	b.opts.codec = c
	return b
}

// Patcher sets the code patcher. Default: patch.Default().
func (b *Builder) Patcher(p patch.Patcher) *Builder {
	b.opts.patcher = p
	return b
}

// Logger sets the structured logger. Default: discard.
//
// Init logs at Info, every effective toggle at Debug, and a failed patch at
// Error just before the process aborts.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.opts.logger = l
	return b
}

// Build creates the table. The table is uninitialized; call Init before
// toggling any key.
func (b *Builder) Build() *Table {
	t := &Table{
		base:    b.base,
		n:       b.n,
		codec:   b.opts.codec,
		patcher: b.opts.patcher,
		logger:  b.opts.logger,
		keep:    b.opts.keep,
	}
	if t.codec == nil {
		t.codec = arch.Host{}
	}
	if t.patcher == nil {
		t.patcher = patch.Default()
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	if b.opts.keys != nil {
		t.keyOf = make(map[uintptr]*Key, len(b.opts.keys))
		for _, k := range b.opts.keys {
			t.keyOf[uintptr(unsafe.Pointer(k))] = k
		}
	}
	return t
}
