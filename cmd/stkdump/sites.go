// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"code.hybscloud.com/statickey/arch"
)

// siteInfo is one resolved branch site.
type siteInfo struct {
	Code       uint64 `json:"code"`
	Target     uint64 `json:"target"`
	LikelyTrue bool   `json:"likely_true"`
	Kind       string `json:"kind,omitempty"`
	JumpTo     uint64 `json:"jump_to,omitempty"`
	Error      string `json:"error,omitempty"`
}

// keyInfo is a key and its sites in table order.
type keyInfo struct {
	Key   uint64     `json:"key"`
	Sites []siteInfo `json:"sites"`
}

// report is the result of "stkdump sites".
type report struct {
	Arch        string    `json:"arch"`
	SectionAddr uint64    `json:"section_addr"`
	Descriptors int       `json:"descriptors"`
	Sites       int       `json:"sites"`
	Keys        []keyInfo `json:"keys"`
}

// buildReport resolves every descriptor of im, orders them the way
// Table.Init does, and decodes the instruction at each site.
func buildReport(im *image) (*report, error) {
	size := 3 * im.ptrSize
	if len(im.keys.data)%size != 0 {
		return nil, errTruncated
	}
	codec, codecErr := arch.ForArch(im.goarch)

	type entry struct {
		key  uint64
		site siteInfo
	}
	var entries []entry
	for off := 0; off < len(im.keys.data); off += size {
		if im.word(off) == 0 {
			continue // sentinel
		}
		ref := im.resolve(off + 2*im.ptrSize)
		s := siteInfo{
			Code:       im.resolve(off),
			Target:     im.resolve(off + im.ptrSize),
			LikelyTrue: ref&1 != 0,
		}
		decodeSite(im, codec, codecErr, &s)
		entries = append(entries, entry{key: ref &^ 1, site: s})
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(a.key, b.key); c != 0 {
			return c
		}
		return cmp.Compare(a.site.Code, b.site.Code)
	})

	r := &report{
		Arch:        im.goarch,
		SectionAddr: im.keys.addr,
		Descriptors: len(im.keys.data) / size,
		Sites:       len(entries),
	}
	for i, e := range entries {
		if i == 0 || e.key != entries[i-1].key {
			r.Keys = append(r.Keys, keyInfo{Key: e.key})
		}
		k := &r.Keys[len(r.Keys)-1]
		k.Sites = append(k.Sites, e.site)
	}
	return r, nil
}

func decodeSite(im *image, codec arch.Codec, codecErr error, s *siteInfo) {
	if codecErr != nil {
		s.Error = codecErr.Error()
		return
	}
	insn, ok := im.read(s.Code, codec.Len())
	if !ok {
		s.Error = "code address outside loaded sections"
		return
	}
	kind, to, err := codec.Decode(insn, uintptr(s.Code))
	if err != nil {
		s.Error = err.Error()
		return
	}
	s.Kind = kind.String()
	if kind == arch.Jump {
		s.JumpTo = uint64(to)
	}
}

// writeText prints r grouped by key.
func writeText(w io.Writer, r *report) error {
	_, err := fmt.Fprintf(w, "%s: %d sites, %d keys, section %#x\n",
		r.Arch, r.Sites, len(r.Keys), r.SectionAddr)
	if err != nil {
		return err
	}
	for _, k := range r.Keys {
		if _, err := fmt.Fprintf(w, "key %#x\n", k.Key); err != nil {
			return err
		}
		for _, s := range k.Sites {
			insn := s.Kind
			switch {
			case s.Error != "":
				insn = "error: " + s.Error
			case s.Kind == arch.Jump.String() && s.JumpTo != s.Target:
				insn = fmt.Sprintf("jump %#x (foreign target)", s.JumpTo)
			}
			_, err := fmt.Fprintf(w, "  %#x -> %#x likely=%-5v %s\n",
				s.Code, s.Target, s.LikelyTrue, insn)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
