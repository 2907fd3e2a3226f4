// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix && !(darwin && cgo)

package patch

// Default returns Mprotect.
func Default() Patcher {
	return Mprotect{}
}

// DefaultProtector returns Mprotect.
func DefaultProtector() Protector {
	return Mprotect{}
}
