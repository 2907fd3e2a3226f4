// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package arch

import "encoding/binary"

const (
	// andi r0, r0, 0
	loong64InsnNop  uint32 = 0x03400000
	loong64InsnB    uint32 = 0x50000000
	loong64MaskOp   uint32 = 0xfc000000
	loong64MaskHi10 uint32 = 0x03ff0000
	loong64MaskLo16 uint32 = 0x0000ffff
)

// LOONG64 is the LoongArch64 codec: B offs26 jump, ANDI r0,r0,0 NOP.
type LOONG64 struct{}

// Name returns "loong64".
func (LOONG64) Name() string { return "loong64" }

// Len returns 4.
func (LOONG64) Len() int { return 4 }

// Encode returns the 4-byte instruction for kind at code.
//
// Layout: opcode(010100) | offs[15:0] << 10 | offs[25:16], where offs is
// (target-code) >> 2; the caller guarantees ±128 MiB reach.
func (LOONG64) Encode(kind Kind, code, target uintptr) []byte {
	if kind != Jump {
		return word32(loong64InsnNop)
	}
	offs := uint32(target-code) >> 2
	b := loong64InsnB | (offs&loong64MaskHi10)>>16 | (offs&loong64MaskLo16)<<10
	return word32(b)
}

// Decode classifies a 4-byte LoongArch64 branch-site instruction.
func (LOONG64) Decode(insn []byte, code uintptr) (Kind, uintptr, error) {
	if len(insn) < 4 {
		return Nop, 0, ErrShortInstruction
	}
	w := binary.LittleEndian.Uint32(insn)
	switch {
	case w == loong64InsnNop:
		return Nop, 0, nil
	case w&loong64MaskOp == loong64InsnB:
		offs := (w>>10)&loong64MaskLo16 | (w&0x3ff)<<16
		return Jump, code + uintptr(signExtend(offs, 26)*4), nil
	default:
		return Nop, 0, ErrUnknownInstruction
	}
}
