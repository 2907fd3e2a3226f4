// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build darwin && cgo

package patch

/*
#include <stdint.h>
#include <string.h>
#include <mach/mach.h>
#include <mach/mach_vm.h>
#include <libkern/OSCacheControl.h>

enum {
	stkStageRemapOut = 1,
	stkStageProtectRW,
	stkStageProtectRX,
	stkStageRemapIn,
};

// Edits a copy of [page, page+len) and maps it back over the original.
// The live range is never writable. On failure *stage names the step.
static kern_return_t stk_mach_patch(uintptr_t page, size_t len, uintptr_t addr,
		const void *code, size_t n, int *stage) {
	mach_port_t task = mach_task_self();
	mach_vm_address_t copy = 0;
	vm_prot_t cur, max;
	kern_return_t kr;

	kr = mach_vm_remap(task, &copy, len, 0, VM_FLAGS_ANYWHERE,
		task, page, TRUE, &cur, &max, VM_INHERIT_NONE);
	if (kr != KERN_SUCCESS) {
		*stage = stkStageRemapOut;
		return kr;
	}

	kr = mach_vm_protect(task, copy, len, FALSE,
		VM_PROT_READ | VM_PROT_WRITE | VM_PROT_COPY);
	if (kr != KERN_SUCCESS) {
		mach_vm_deallocate(task, copy, len);
		*stage = stkStageProtectRW;
		return kr;
	}

	void *dst = (void *)(uintptr_t)(copy + (addr - page));
	memcpy(dst, code, n);
	sys_dcache_flush(dst, n);

	kr = mach_vm_protect(task, copy, len, FALSE, VM_PROT_READ | VM_PROT_EXECUTE);
	if (kr != KERN_SUCCESS) {
		mach_vm_deallocate(task, copy, len);
		*stage = stkStageProtectRX;
		return kr;
	}
	sys_icache_invalidate(dst, n);

	mach_vm_address_t target = page;
	kr = mach_vm_remap(task, &target, len, 0, VM_FLAGS_FIXED | VM_FLAGS_OVERWRITE,
		task, copy, FALSE, &cur, &max, VM_INHERIT_NONE);
	mach_vm_deallocate(task, copy, len);
	if (kr != KERN_SUCCESS) {
		*stage = stkStageRemapIn;
		return kr;
	}

	sys_icache_invalidate((void *)addr, n);
	return KERN_SUCCESS;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"code.hybscloud.com/statickey/internal/mem"
)

var machStages = [...]string{
	C.stkStageRemapOut:  "mach_vm_remap copy",
	C.stkStageProtectRW: "mach_vm_protect rw",
	C.stkStageProtectRX: "mach_vm_protect rx",
	C.stkStageRemapIn:   "mach_vm_remap overwrite",
}

// MachRemap patches code on W^X-enforcing macOS.
//
// The covering pages are remapped to a fresh address as a copy, made
// writable there, edited, data-cache flushed, sealed read-execute,
// instruction-cache invalidated, and remapped over the original address.
// No mapping of the live address is ever writable and executable.
type MachRemap struct{}

// WriteCode replaces the pages covering [addr, addr+len(code)) with an
// edited copy.
func (MachRemap) WriteCode(addr uintptr, code []byte) error {
	if len(code) == 0 {
		return nil
	}
	start, length := mem.PageRange(addr, uintptr(len(code)))

	var stage C.int
	kr := C.stk_mach_patch(C.uintptr_t(start), C.size_t(length), C.uintptr_t(addr),
		unsafe.Pointer(&code[0]), C.size_t(len(code)), &stage)
	if kr != C.KERN_SUCCESS {
		return &Error{Op: machStages[stage], Addr: start, Err: fmt.Errorf("kern_return_t %d", int(kr))}
	}
	return nil
}

// Default returns MachRemap.
func Default() Patcher {
	return MachRemap{}
}

// DefaultProtector returns Mprotect. Only useful where the kernel permits
// RWX pages (amd64, or processes with the JIT entitlement).
func DefaultProtector() Protector {
	return Mprotect{}
}
