// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package arch encodes and decodes the fixed-length instruction placed at
// every static-key branch site.
//
// A branch site holds exactly one of two instructions of identical length:
//
//   - [Nop]: fall through to the likely branch
//   - [Jump]: unconditional jump to the site's target (the unlikely branch)
//
// Each supported instruction set has a [Codec]. [Host] is the codec of the
// architecture the binary was built for; [ForArch] looks codecs up by GOARCH
// name for tools that inspect foreign binaries.
//
// Displacement limits (±2 GiB on x86, ±128 MiB on AArch64 and LoongArch64,
// ±1 MiB on RISC-V64) are a precondition on code layout. Encode never checks
// them.
package arch

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind selects the instruction written at a branch site.
type Kind uint8

const (
	// Nop makes the site fall through.
	Nop Kind = iota
	// Jump makes the site branch to its target.
	Jump
)

// String returns "nop" or "jump".
func (k Kind) String() string {
	switch k {
	case Nop:
		return "nop"
	case Jump:
		return "jump"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// KindOf returns the instruction kind for a site whose key has the given
// state. enabled XOR likelyTrue yields Jump.
func KindOf(enabled, likelyTrue bool) Kind {
	if enabled != likelyTrue {
		return Jump
	}
	return Nop
}

// MaxLen is the longest branch-site instruction of any supported codec.
const MaxLen = 5

var (
	// ErrUnknownInstruction is returned by Decode when the bytes are neither
	// the codec's NOP nor its jump.
	ErrUnknownInstruction = errors.New("arch: not a branch-site instruction")

	// ErrShortInstruction is returned by Decode when fewer than Len bytes
	// are supplied.
	ErrShortInstruction = errors.New("arch: short instruction")

	// ErrUnsupportedArch is returned by ForArch for unknown names.
	ErrUnsupportedArch = errors.New("arch: unsupported architecture")
)

// Codec maps (kind, site address, target address) to the site's instruction
// bytes and back.
//
// Implementations are stateless value types; the zero value is ready to use.
type Codec interface {
	// Name returns the GOARCH name of the instruction set.
	Name() string

	// Len returns the fixed instruction length in bytes. Both the NOP and
	// the jump encodings occupy exactly Len bytes.
	Len() int

	// Encode returns the Len-byte instruction for kind placed at code.
	// For Nop the addresses are ignored.
	Encode(kind Kind, code, target uintptr) []byte

	// Decode classifies insn, located at code, and returns the jump target
	// for Jump (0 for Nop).
	Decode(insn []byte, code uintptr) (Kind, uintptr, error)
}

var codecs = map[string]Codec{
	"386":     X86{},
	"amd64":   AMD64{},
	"arm64":   ARM64{},
	"riscv64": RISCV64{},
	"loong64": LOONG64{},
}

// ForArch returns the codec for a GOARCH name.
func ForArch(goarch string) (Codec, error) {
	c, ok := codecs[goarch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedArch, goarch)
	}
	return c, nil
}

// Unsupported is the Host codec on architectures without an encoding.
// Encode panics: toggling a key that owns sites cannot be expressed there.
type Unsupported struct{}

// Name returns "unsupported".
func (Unsupported) Name() string { return "unsupported" }

// Len returns 0.
func (Unsupported) Len() int { return 0 }

// Encode panics.
func (Unsupported) Encode(Kind, uintptr, uintptr) []byte {
	panic("arch: no branch-site encoding for this architecture")
}

// Decode always fails with ErrUnsupportedArch.
func (Unsupported) Decode([]byte, uintptr) (Kind, uintptr, error) {
	return Nop, 0, ErrUnsupportedArch
}

// word32 encodes a 4-byte instruction word little-endian. All supported
// fixed-width instruction sets store instructions little-endian.
func word32(insn uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], insn)
	return b[:]
}

// signExtend interprets the low bits of v as a two's-complement value.
func signExtend(v uint32, bits uint) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift) >> shift)
}
