// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statickey

import (
	"log/slog"
	"slices"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/statickey/arch"
	"code.hybscloud.com/statickey/internal/mem"
	"code.hybscloud.com/statickey/patch"
)

// Initialization states
const (
	stateIdle  int32 = iota // offsets unresolved
	stateBusy               // one goroutine is resolving
	stateReady              // resolved, sorted and linked
)

// Table is the branch-site table: the descriptor array between two section
// boundaries, plus the codec and patcher used to rewrite its sites.
//
// Memory: the descriptors live in the section; Table holds only its base,
// configuration and counters.
type Table struct {
	_     pad
	state atomix.Int32
	_     padShort

	base    unsafe.Pointer
	n       int
	codec   arch.Codec
	patcher patch.Patcher
	logger  *slog.Logger
	keep    any

	// keyOf maps key addresses of a Go-allocated section back to their
	// keys; nil for linker sections, whose keys are package variables.
	keyOf map[uintptr]*Key

	sites     int
	keys      int
	toggles   atomix.Uint64
	redundant atomix.Uint64
	patched   atomix.Uint64
}

// Init resolves, sorts and links the table. It must complete before any key
// is toggled and before other goroutines can race a patch.
//
// Safe for concurrent use: exactly one caller does the work, the others
// spin until it is done. Calls after completion return immediately.
func (t *Table) Init() {
	if t.state.LoadAcquire() == stateReady {
		return
	}
	if t.state.CompareAndSwapAcqRel(stateIdle, stateBusy) {
		t.initialize()
		t.state.StoreRelease(stateReady)
		return
	}

	sw := spin.Wait{}
	for t.state.LoadAcquire() != stateReady {
		sw.Once()
	}
}

// TryInit is the non-blocking form of Init.
//
// Returns nil once the table is initialized (by this call or an earlier
// one), or ErrWouldBlock while another goroutine is initializing.
func (t *Table) TryInit() error {
	switch {
	case t.state.LoadAcquire() == stateReady:
		return nil
	case t.state.CompareAndSwapAcqRel(stateIdle, stateBusy):
		t.initialize()
		t.state.StoreRelease(stateReady)
		return nil
	case t.state.LoadAcquire() == stateReady:
		return nil
	default:
		return ErrWouldBlock
	}
}

// Initialized reports whether Init has completed.
func (t *Table) Initialized() bool {
	return t.state.LoadAcquire() == stateReady
}

// Len returns the number of descriptors in the section, sentinels included.
func (t *Table) Len() int {
	return t.n
}

// Descriptors returns a copy of the descriptor array in table order.
// Before Init the fields hold raw relative offsets.
func (t *Table) Descriptors() []Descriptor {
	return slices.Clone(t.entries())
}

// Codec returns the table's instruction codec.
func (t *Table) Codec() arch.Codec {
	return t.codec
}

// entries views the section as a descriptor slice.
func (t *Table) entries() []Descriptor {
	if t.n == 0 {
		return nil
	}
	return unsafe.Slice((*Descriptor)(t.base), t.n)
}

// indexOf returns the table index of d, which must point into entries.
func (t *Table) indexOf(d *Descriptor) int {
	return int((uintptr(unsafe.Pointer(d)) - uintptr(t.base)) / descriptorSize)
}

// keyAt returns the Key at addr. Keys of a linker section are package
// variables, so their address is reinterpreted in place.
func (t *Table) keyAt(addr uintptr) *Key {
	if t.keyOf != nil {
		return t.keyOf[addr]
	}
	return *(**Key)(unsafe.Pointer(&addr))
}

// initialize runs once, on the goroutine that won the state transition.
func (t *Table) initialize() {
	entries := t.entries()

	for i := range entries {
		if entries[i].IsSentinel() {
			continue
		}
		entries[i].resolve()
		t.sites++
	}

	slices.SortStableFunc(entries, compareDescriptors)

	var last uintptr
	for i := range entries {
		d := &entries[i]
		if d.IsSentinel() {
			continue
		}
		ka := d.KeyAddr()
		if ka == last {
			continue
		}
		k := t.keyAt(ka)
		k.entries = d
		k.table = t
		last = ka
		t.keys++
	}

	t.logger.Info("static key table initialized",
		"sites", t.sites,
		"keys", t.keys,
		"codec", t.codec.Name())
}

// patchSite rewrites one branch site for the key state enabled.
func (t *Table) patchSite(d *Descriptor, enabled bool) {
	kind := arch.KindOf(enabled, d.LikelyBranchIsTrue())
	code := t.codec.Encode(kind, d.code, d.target)
	if err := t.patcher.WriteCode(d.code, code); err != nil {
		t.logger.Error("static key patch failed",
			"site", d.code,
			"kind", kind.String(),
			"error", err)
		fatal(d.code, err)
	}
	t.patched.Add(1)
}

// siteBytes returns the live instruction bytes of d.
func (t *Table) siteBytes(d *Descriptor) []byte {
	return mem.Bytes(d.code, t.codec.Len())
}

// Stats is a snapshot of table counters.
type Stats struct {
	// Sites is the number of resolved, non-sentinel descriptors.
	Sites int
	// Keys is the number of distinct keys owning at least one site.
	Keys int
	// Toggles counts effective Enable/Disable calls on linked keys.
	Toggles uint64
	// Redundant counts Enable/Disable calls that matched the current state.
	Redundant uint64
	// Patched counts branch sites rewritten.
	Patched uint64
}

// Stats returns the table counters. Sites and Keys are zero before Init.
func (t *Table) Stats() Stats {
	s := Stats{
		Toggles:   t.toggles.Load(),
		Redundant: t.redundant.Load(),
		Patched:   t.patched.Load(),
	}
	if t.Initialized() {
		s.Sites, s.Keys = t.sites, t.keys
	}
	return s
}

// pad is cache line padding to keep the init flag off shared lines.
type pad [64]byte

// padShort is padding to fill cache line after a 4-byte field.
type padShort [64 - 4]byte
