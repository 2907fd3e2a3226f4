// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statickey

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates that another goroutine is initializing the table.
//
// Returned by [Table.TryInit]. It is a control flow signal, not a failure:
// retry later, or call [Table.Init] to wait.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

var (
	// ErrSectionFull is returned by Section.Add when the arena has no
	// free descriptor.
	ErrSectionFull = errors.New("statickey: section full")

	// ErrSectionSealed is returned by Section.Add after a table was built
	// over the section.
	ErrSectionSealed = errors.New("statickey: section sealed")

	// ErrOffsetRange is returned by Section.Add when an address cannot be
	// expressed as a field-relative offset on this target.
	ErrOffsetRange = errors.New("statickey: offset out of range")

	// ErrSiteMismatch is returned by Key.Verify when a branch site does
	// not hold the instruction the key's state requires.
	ErrSiteMismatch = errors.New("statickey: branch site mismatch")
)

// fatal aborts after a failed code patch. A half-patched instruction stream
// is not safe to keep executing, so there is no error return.
func fatal(code uintptr, err error) {
	panic(fmt.Errorf("statickey: patch site %#x: %w", code, err))
}
