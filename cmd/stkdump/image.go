// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"errors"
	"fmt"
)

// sectionName is the descriptor section in both ELF and Mach-O images.
const sectionName = "__static_keys"

var (
	errUnknownFormat = errors.New("not an ELF or Mach-O file")
	errNoSection     = errors.New("no " + sectionName + " section")
	errTruncated     = errors.New(sectionName + " size is not a multiple of the descriptor size")
)

// region is loaded memory of the image at its link-time address.
type region struct {
	addr uint64
	data []byte
}

// image is the part of an executable stkdump needs: the descriptor section
// and the allocated sections that code addresses point into.
type image struct {
	goarch  string
	order   binary.ByteOrder
	ptrSize int
	keys    region
	regions []region
}

// openImage loads path as ELF, falling back to Mach-O.
func openImage(path string) (*image, error) {
	if f, err := elf.Open(path); err == nil {
		defer f.Close()
		return loadELF(f)
	}
	if f, err := macho.Open(path); err == nil {
		defer f.Close()
		return loadMachO(f)
	}
	return nil, fmt.Errorf("%s: %w", path, errUnknownFormat)
}

func loadELF(f *elf.File) (*image, error) {
	im := &image{order: f.ByteOrder, ptrSize: 8}
	if f.Class == elf.ELFCLASS32 {
		im.ptrSize = 4
	}
	switch f.Machine {
	case elf.EM_X86_64:
		im.goarch = "amd64"
	case elf.EM_386:
		im.goarch = "386"
	case elf.EM_AARCH64:
		im.goarch = "arm64"
	case elf.EM_RISCV:
		im.goarch = "riscv64"
	case elf.EM_LOONGARCH:
		im.goarch = "loong64"
	default:
		im.goarch = f.Machine.String()
	}

	found := false
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Type == elf.SHT_NOBITS {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", s.Name, err)
		}
		r := region{addr: s.Addr, data: data}
		im.regions = append(im.regions, r)
		if s.Name == sectionName {
			im.keys, found = r, true
		}
	}
	if !found {
		return nil, errNoSection
	}
	return im, nil
}

// zerofill is the Mach-O S_ZEROFILL section type.
const zerofill = 0x1

func loadMachO(f *macho.File) (*image, error) {
	im := &image{order: f.ByteOrder, ptrSize: 8}
	switch f.Cpu {
	case macho.CpuAmd64:
		im.goarch = "amd64"
	case macho.Cpu386:
		im.goarch = "386"
		im.ptrSize = 4
	case macho.CpuArm64:
		im.goarch = "arm64"
	default:
		im.goarch = f.Cpu.String()
	}

	found := false
	for _, s := range f.Sections {
		if s.Flags&0xff == zerofill {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("section %s,%s: %w", s.Seg, s.Name, err)
		}
		r := region{addr: s.Addr, data: data}
		im.regions = append(im.regions, r)
		if s.Name == sectionName {
			im.keys, found = r, true
		}
	}
	if !found {
		return nil, errNoSection
	}
	return im, nil
}

// read returns n bytes of the image at addr, or false when the range is not
// inside one loaded section.
func (im *image) read(addr uint64, n int) ([]byte, bool) {
	for _, r := range im.regions {
		if addr < r.addr || addr-r.addr > uint64(len(r.data)) {
			continue
		}
		off := addr - r.addr
		if uint64(n) > uint64(len(r.data))-off {
			continue
		}
		return r.data[off : off+uint64(n)], true
	}
	return nil, false
}

// word reads the pointer-sized field at byte offset off of the section.
func (im *image) word(off int) uint64 {
	b := im.keys.data[off:]
	if im.ptrSize == 4 {
		return uint64(im.order.Uint32(b))
	}
	return im.order.Uint64(b)
}

// resolve turns a field-relative offset stored at section offset off into
// an absolute address, wrapping at the image's pointer width.
func (im *image) resolve(off int) uint64 {
	abs := im.keys.addr + uint64(off) + im.word(off)
	if im.ptrSize == 4 {
		abs &= 0xffffffff
	}
	return abs
}
