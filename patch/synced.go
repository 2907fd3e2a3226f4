// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package patch

import (
	"errors"
	"sync"

	"code.hybscloud.com/statickey/internal/mem"
)

// syncMu serialises every Synced write in the process.
var syncMu sync.Mutex

// ErrStraddle is returned by Synced when a site crosses a 16-byte boundary
// and so cannot be published with one atomic store.
var ErrStraddle = errors.New("patch: site straddles a 16-byte boundary")

// Synced patches code under a process-wide lock and publishes the new
// bytes with a single aligned atomic store.
//
// The destination word (8 bytes, or 16 when the range crosses an 8-byte
// boundary) is read, the instruction bytes are spliced in, and the whole
// word is written back with one locked compare-and-swap. Cores
// executing the site concurrently observe the old or the new instruction,
// never a torn one. A range that straddles a 16-byte boundary cannot be
// covered by one word and is rejected with ErrStraddle before any page
// protection changes.
//
// Synced relaxes the single-writer rule only for concurrent readers of the
// branch site; concurrent enable/disable calls still need external order.
type Synced struct {
	// Protector flips page protection around the store. Nil selects
	// DefaultProtector.
	Protector Protector
}

// WriteCode writes code at addr atomically with respect to other Synced
// writers and to instruction fetch.
func (s Synced) WriteCode(addr uintptr, code []byte) error {
	if !mem.AtomicSpan(addr, uintptr(len(code))) {
		return &Error{Op: "synced store", Addr: addr, Err: ErrStraddle}
	}
	p := s.Protector
	if p == nil {
		p = DefaultProtector()
	}

	syncMu.Lock()
	defer syncMu.Unlock()
	return writeVia(p, addr, code, storeAtomic)
}

// storeAtomic publishes code; WriteCode has checked the span.
func storeAtomic(addr uintptr, code []byte) {
	mem.WriteWordAtomic(addr, code)
}
