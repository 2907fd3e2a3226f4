// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !unix && !windows

package patch

// Default returns Direct: without an OS there is no protection to flip.
func Default() Patcher {
	return Direct{}
}

// DefaultProtector returns Direct.
func DefaultProtector() Protector {
	return Direct{}
}
