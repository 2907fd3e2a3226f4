// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statickey implements static keys (jump labels): boolean flags
// that gate branch sites in machine code at the cost of a single NOP.
//
// Each guarded branch is compiled to a fixed-length NOP or unconditional
// jump, chosen from the key's initial value. Toggling a key rewrites every
// site it owns, in place, while the process keeps running.
//
// # Components
//
//   - [Descriptor]: one record per branch site (code, target, key)
//   - [Table]: the descriptor array between two section boundaries
//   - [Key]: current state plus the start of its run of descriptors
//   - [arch.Codec]: per-architecture NOP/jump encoding
//   - [patch.Patcher]: per-OS code writing
//   - [Section]: run-time front-end producing a descriptor array
//
// # Quick Start
//
// Tables come from a linker section or from a [Section]:
//
//	var (
//	    fastPath = statickey.NewTrueKey()
//	    tracing  = statickey.NewFalseKey()
//	)
//
//	// sectionStart, sectionStop: the linker's boundary symbols
//	t := statickey.New(unsafe.Pointer(&sectionStart), unsafe.Pointer(&sectionStop)).Build()
//	t.Init() // once, before spawning goroutines that run guarded code
//
//	tracing.Enable()   // every site guarded by tracing now takes its branch
//	fastPath.Disable() // and every fastPath site falls the other way
//
// # Initialization
//
// Descriptors are stored as field-relative offsets so the section is
// position independent. [Table.Init] runs once per table:
//
//  1. resolve every non-sentinel descriptor to absolute addresses
//  2. stable-sort by (key address, code address)
//  3. record each key's first descriptor in the key
//
// Init is safe to call from many goroutines at once; one does the work and
// the others spin until it finishes. [Table.TryInit] returns
// [ErrWouldBlock] instead of spinning.
//
// # Toggling
//
// [Key.Enable] and [Key.Disable] are no-ops when the state already matches.
// Otherwise they walk the key's contiguous run of descriptors and write
// Jump when enabled XOR likely-true, Nop otherwise. A key that owns no
// site only changes state.
//
// # Errors
//
// Layout violations (inverted or misaligned bounds) panic when the table is
// built. A failed memory-protection change or remap panics during the
// toggle: a half-patched instruction stream is not safe to keep running.
// Ordering violations (toggling before Init, concurrent writers) are
// caller obligations and are not detected.
package statickey
