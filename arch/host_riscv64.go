// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build riscv64

package arch

// Host is the branch-site codec of the architecture this binary targets.
type Host = RISCV64
