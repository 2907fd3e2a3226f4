// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package asm provides architecture-specific cache maintenance for code
// that has just been rewritten in place.
//
// Coherence contract:
// After FlushICache(addr, n) returns, an instruction fetch on the calling
// core from [addr, addr+n) observes bytes stored before the call. x86 keeps
// instruction and data caches coherent, so the call is a no-op there.
package asm
