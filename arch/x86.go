// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package arch

import (
	"bytes"
	"encoding/binary"
)

// x86LenJump is the length of JMP rel32 and of both multi-byte NOPs.
const x86LenJump = 5

const x86OpJmpRel32 = 0xe9

var (
	// nopl 0x0(%rax,%rax,1)
	nopAMD64 = [x86LenJump]byte{0x0f, 0x1f, 0x44, 0x00, 0x00}
	// ds lea 0x0(%esi,%eiz,1),%esi
	nop386 = [x86LenJump]byte{0x3e, 0x8d, 0x74, 0x26, 0x00}
)

// AMD64 is the x86-64 codec: E9 rel32 jump, 0F 1F 44 00 00 NOP.
type AMD64 struct{}

// Name returns "amd64".
func (AMD64) Name() string { return "amd64" }

// Len returns 5.
func (AMD64) Len() int { return x86LenJump }

// Encode returns the 5-byte instruction for kind at code.
func (AMD64) Encode(kind Kind, code, target uintptr) []byte {
	if kind == Jump {
		return x86Jump(code, target)
	}
	b := nopAMD64
	return b[:]
}

// Decode classifies a 5-byte x86-64 branch-site instruction.
func (AMD64) Decode(insn []byte, code uintptr) (Kind, uintptr, error) {
	return x86Decode(insn, code, nopAMD64[:])
}

// X86 is the 32-bit x86 codec: E9 rel32 jump, 3E 8D 74 26 00 NOP.
type X86 struct{}

// Name returns "386".
func (X86) Name() string { return "386" }

// Len returns 5.
func (X86) Len() int { return x86LenJump }

// Encode returns the 5-byte instruction for kind at code.
func (X86) Encode(kind Kind, code, target uintptr) []byte {
	if kind == Jump {
		return x86Jump(code, target)
	}
	b := nop386
	return b[:]
}

// Decode classifies a 5-byte x86 branch-site instruction.
func (X86) Decode(insn []byte, code uintptr) (Kind, uintptr, error) {
	return x86Decode(insn, code, nop386[:])
}

// x86Jump encodes JMP rel32. The displacement is relative to the end of the
// instruction and truncated to 32 bits.
func x86Jump(code, target uintptr) []byte {
	rel := uint32(target - (code + x86LenJump))
	b := make([]byte, x86LenJump)
	b[0] = x86OpJmpRel32
	binary.LittleEndian.PutUint32(b[1:], rel)
	return b
}

func x86Decode(insn []byte, code uintptr, nop []byte) (Kind, uintptr, error) {
	if len(insn) < x86LenJump {
		return Nop, 0, ErrShortInstruction
	}
	insn = insn[:x86LenJump]
	if bytes.Equal(insn, nop) {
		return Nop, 0, nil
	}
	if insn[0] != x86OpJmpRel32 {
		return Nop, 0, ErrUnknownInstruction
	}
	rel := int32(binary.LittleEndian.Uint32(insn[1:]))
	return Jump, code + x86LenJump + uintptr(int64(rel)), nil
}
