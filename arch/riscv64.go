// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package arch

import "encoding/binary"

const (
	// addi x0, x0, 0
	riscvInsnNop uint32 = 0x00000013
	// jal x0, 0
	riscvInsnJal uint32 = 0x0000006f
	// opcode and rd fields of JAL
	riscvMaskJalRd uint32 = 0x00000fff
)

// RISCV64 is the RISC-V64 codec: JAL x0 jump, ADDI x0,x0,0 NOP.
//
// Uncompressed encodings only; sites are emitted with norvc so both
// instructions are 4 bytes.
type RISCV64 struct{}

// Name returns "riscv64".
func (RISCV64) Name() string { return "riscv64" }

// Len returns 4.
func (RISCV64) Len() int { return 4 }

// Encode returns the 4-byte instruction for kind at code.
//
// The J-type immediate is scattered as imm[20|10:1|11|19:12] over bits
// 31..12; the caller guarantees the offset fits in 21 signed bits.
func (RISCV64) Encode(kind Kind, code, target uintptr) []byte {
	if kind != Jump {
		return word32(riscvInsnNop)
	}
	off := uint32(target - code)
	jal := riscvInsnJal |
		(off & 0x000ff000) | // imm[19:12] -> 19:12
		(off&0x00000800)<<9 | // imm[11] -> 20
		(off&0x000007fe)<<20 | // imm[10:1] -> 30:21
		(off&0x00100000)<<11 // imm[20] -> 31
	return word32(jal)
}

// Decode classifies a 4-byte RISC-V64 branch-site instruction.
func (RISCV64) Decode(insn []byte, code uintptr) (Kind, uintptr, error) {
	if len(insn) < 4 {
		return Nop, 0, ErrShortInstruction
	}
	w := binary.LittleEndian.Uint32(insn)
	switch {
	case w == riscvInsnNop:
		return Nop, 0, nil
	case w&riscvMaskJalRd == riscvInsnJal:
		imm := (w & 0x000ff000) |
			(w>>9)&0x00000800 |
			(w>>20)&0x000007fe |
			(w>>11)&0x00100000
		return Jump, code + uintptr(signExtend(imm, 21)), nil
	default:
		return Nop, 0, ErrUnknownInstruction
	}
}
