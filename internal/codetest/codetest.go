// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package codetest provides stand-in code memory for tests.
//
// Branch sites are addressed by uintptr, the way a linker section refers to
// text. Such addresses may only be turned back into pointers when they lie
// outside the Go heap, which race builds enforce, so test code memory is
// mapped from the OS like real text rather than allocated with make.
package codetest

import "testing"

// Map returns n bytes of zeroed, read-write memory outside the Go heap,
// released when the test ends.
func Map(tb testing.TB, n int) []byte {
	tb.Helper()
	b, unmap, err := mapAnon(n)
	if err != nil {
		tb.Fatalf("codetest: map %d bytes: %v", n, err)
	}
	tb.Cleanup(func() {
		if err := unmap(); err != nil {
			tb.Errorf("codetest: unmap: %v", err)
		}
	})
	return b
}
