// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !unix && !windows

package codetest

// Targets without an mmap equivalent have no race detector either.
func mapAnon(n int) ([]byte, func() error, error) {
	return make([]byte, n), func() error { return nil }, nil
}
