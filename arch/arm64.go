// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package arch

import "encoding/binary"

const (
	arm64InsnNop    uint32 = 0xd503201f
	arm64InsnB      uint32 = 0x14000000
	arm64MaskOpcode uint32 = 0xfc000000
	arm64MaskImm26  uint32 = 0x03ffffff
)

// ARM64 is the AArch64 codec: B imm26 jump, D503201F NOP.
type ARM64 struct{}

// Name returns "arm64".
func (ARM64) Name() string { return "arm64" }

// Len returns 4.
func (ARM64) Len() int { return 4 }

// Encode returns the 4-byte instruction for kind at code.
//
// imm26 is (target-code)/4; the caller guarantees ±128 MiB reach.
func (ARM64) Encode(kind Kind, code, target uintptr) []byte {
	if kind != Jump {
		return word32(arm64InsnNop)
	}
	off := uint32(target - code)
	return word32(arm64InsnB | (off>>2)&arm64MaskImm26)
}

// Decode classifies a 4-byte AArch64 branch-site instruction.
func (ARM64) Decode(insn []byte, code uintptr) (Kind, uintptr, error) {
	if len(insn) < 4 {
		return Nop, 0, ErrShortInstruction
	}
	w := binary.LittleEndian.Uint32(insn)
	switch {
	case w == arm64InsnNop:
		return Nop, 0, nil
	case w&arm64MaskOpcode == arm64InsnB:
		off := signExtend(w&arm64MaskImm26, 26) * 4
		return Jump, code + uintptr(off), nil
	default:
		return Nop, 0, ErrUnknownInstruction
	}
}
