// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statickey

import (
	"fmt"
	"unsafe"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/statickey/arch"
)

// Key is a boolean flag whose branch sites are rewritten in place when it
// is toggled.
//
// Descriptors refer to a Key by address, so a Key must live at a fixed
// address for the whole process: declare keys as package-level variables.
//
// Example:
//
//	var tracing = statickey.NewFalseKey()
//
//	func main() {
//	    table.Init()
//	    if os.Getenv("TRACE") != "" {
//	        tracing.Enable()
//	    }
//	}
//
// Enable and Disable follow a single-writer discipline: no two goroutines
// may toggle keys whose sites overlap at the same time, and, unless the
// table uses patch.Synced, no goroutine may be executing a site while it is
// rewritten. Toggle before spawning the goroutines that run guarded code.
//
// Enabled may be called from any goroutine at any time.
type Key struct {
	// First descriptor of the key's run; nil until Table.Init, and nil
	// forever for a key that owns no site.
	entries *Descriptor
	table   *Table

	// flipped is set while the state differs from initial, so the zero
	// Key is a valid disabled key.
	flipped atomix.Bool
	initial bool
}

// NewKey returns a key whose state and initial site layout are initial.
func NewKey(initial bool) Key {
	return Key{initial: initial}
}

// NewTrueKey returns a key that starts enabled.
func NewTrueKey() Key {
	return NewKey(true)
}

// NewFalseKey returns a key that starts disabled.
func NewFalseKey() Key {
	return NewKey(false)
}

// Enabled reports the key's current state.
func (k *Key) Enabled() bool {
	return k.initial != k.flipped.LoadAcquire()
}

// InitialEnabled reports the state the key was declared with. It only
// decides the build-time layout of the key's sites.
func (k *Key) InitialEnabled() bool {
	return k.initial
}

// Enable sets the key and rewrites its sites. No-op if already enabled.
func (k *Key) Enable() {
	k.update(true)
}

// Disable clears the key and rewrites its sites. No-op if already disabled.
func (k *Key) Disable() {
	k.update(false)
}

// Sites returns the number of branch sites owned by the key. Zero before
// Table.Init.
func (k *Key) Sites() int {
	n := 0
	k.each(func(*Descriptor) { n++ })
	return n
}

// Verify decodes every site of the key and checks it holds the instruction
// the current state requires: the NOP, or a jump to the site's target.
func (k *Key) Verify() error {
	if k.table == nil {
		return nil
	}
	var err error
	codec := k.table.codec
	enabled := k.Enabled()
	k.each(func(d *Descriptor) {
		if err != nil {
			return
		}
		want := arch.KindOf(enabled, d.LikelyBranchIsTrue())
		got, target, derr := codec.Decode(k.table.siteBytes(d), d.code)
		switch {
		case derr != nil:
			err = fmt.Errorf("statickey: site %#x: %w", d.code, derr)
		case got != want:
			err = fmt.Errorf("%w: site %#x: got %v, want %v", ErrSiteMismatch, d.code, got, want)
		case got == arch.Jump && target != d.target:
			err = fmt.Errorf("%w: site %#x: jump to %#x, want %#x", ErrSiteMismatch, d.code, target, d.target)
		}
	})
	return err
}

func (k *Key) update(enabled bool) {
	t := k.table
	if k.Enabled() == enabled {
		if t != nil {
			t.redundant.Add(1)
		}
		return
	}
	k.flipped.StoreRelease(enabled != k.initial)
	if k.entries == nil {
		return
	}

	n := 0
	k.each(func(d *Descriptor) {
		t.patchSite(d, enabled)
		n++
	})
	t.toggles.Add(1)
	t.logger.Debug("static key toggled",
		"key", uintptr(unsafe.Pointer(k)),
		"enabled", enabled,
		"sites", n)
}

// each visits the key's descriptors: the run starting at entries that
// shares this key's address, bounded by the end of the table.
func (k *Key) each(fn func(*Descriptor)) {
	if k.entries == nil {
		return
	}
	self := uintptr(unsafe.Pointer(k))
	entries := k.table.entries()
	for i := k.table.indexOf(k.entries); i < len(entries); i++ {
		d := &entries[i]
		if d.KeyAddr() != self {
			break
		}
		fn(d)
	}
}
