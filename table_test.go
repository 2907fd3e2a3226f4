// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statickey_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"unsafe"

	"code.hybscloud.com/statickey"
	"code.hybscloud.com/statickey/arch"
)

// =============================================================================
// Resolution, sorting and linking
// =============================================================================

// TestInitGroupsByKey registers sites of three keys interleaved and out of
// address order; after Init each key's descriptors must be contiguous and
// ordered by code address.
func TestInitGroupsByKey(t *testing.T) {
	keys := []statickey.Key{statickey.NewFalseKey(), statickey.NewTrueKey(), statickey.NewFalseKey()}
	a := newArena(t, arch.AMD64{}, 12)
	s := statickey.NewSection(12)

	// Arena order interleaves the keys
	type want struct {
		key  uintptr
		code uintptr
	}
	var registered []want
	order := []int{2, 0, 1, 1, 2, 0, 0, 2, 1, 0, 1, 2}
	for _, ki := range order {
		st := a.emit(t, s, &keys[ki], ki == 1)
		registered = append(registered, want{key: uintptr(unsafe.Pointer(&keys[ki])), code: st.code})
	}

	tbl := s.Builder().Codec(arch.AMD64{}).Patcher(&countingPatcher{}).Build()
	if tbl.Initialized() {
		t.Fatalf("Initialized before Init: got true")
	}
	tbl.Init()
	if !tbl.Initialized() {
		t.Fatalf("Initialized after Init: got false")
	}

	ds := tbl.Descriptors()
	if len(ds) != tbl.Len() || tbl.Len() != len(order)+1 {
		t.Fatalf("Len: got %d (descriptors %d), want %d", tbl.Len(), len(ds), len(order)+1)
	}
	if !ds[0].IsSentinel() {
		t.Fatalf("descriptor 0: got %#x, want sentinel", ds[0].CodeAddr())
	}

	seen := map[uintptr]bool{}
	for i := 1; i < len(ds); i++ {
		prev, cur := ds[i-1], ds[i]
		if cur.IsSentinel() {
			t.Fatalf("descriptor %d: unexpected sentinel", i)
		}
		if cur.KeyAddr() != prev.KeyAddr() {
			if seen[cur.KeyAddr()] {
				t.Fatalf("descriptor %d: key %#x not contiguous", i, cur.KeyAddr())
			}
			seen[cur.KeyAddr()] = true
			if cur.KeyAddr() < prev.KeyAddr() {
				t.Fatalf("descriptor %d: key %#x after %#x", i, cur.KeyAddr(), prev.KeyAddr())
			}
			continue
		}
		if cur.CodeAddr() <= prev.CodeAddr() {
			t.Fatalf("descriptor %d: code %#x not after %#x", i, cur.CodeAddr(), prev.CodeAddr())
		}
	}

	// Every registered site survives resolution with its key
	found := map[want]bool{}
	for _, d := range ds[1:] {
		found[want{key: d.KeyAddr(), code: d.CodeAddr()}] = true
		if d.TargetAddr() != d.CodeAddr()+8 {
			t.Fatalf("site %#x: target %#x, want %#x", d.CodeAddr(), d.TargetAddr(), d.CodeAddr()+8)
		}
		if d.LikelyBranchIsTrue() != (d.KeyAddr() == uintptr(unsafe.Pointer(&keys[1]))) {
			t.Fatalf("site %#x: likely bit lost", d.CodeAddr())
		}
	}
	for _, r := range registered {
		if !found[r] {
			t.Fatalf("site %#x of key %#x missing after Init", r.code, r.key)
		}
	}

	for i := range keys {
		if n := keys[i].Sites(); n != 4 {
			t.Fatalf("key %d Sites: got %d, want 4", i, n)
		}
	}

	stats := tbl.Stats()
	if stats.Sites != 12 || stats.Keys != 3 {
		t.Fatalf("Stats: got %+v, want Sites=12 Keys=3", stats)
	}
}

func TestInitIdempotent(t *testing.T) {
	key := statickey.NewFalseKey()
	a := newArena(t, arch.AMD64{}, 2)
	s := statickey.NewSection(2)
	a.emit(t, s, &key, false)
	a.emit(t, s, &key, false)

	tbl := s.Builder().Codec(arch.AMD64{}).Patcher(&countingPatcher{}).Build()
	tbl.Init()
	first := tbl.Descriptors()
	tbl.Init()
	if err := tbl.TryInit(); err != nil {
		t.Fatalf("TryInit after Init: %v", err)
	}
	second := tbl.Descriptors()

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("descriptor %d changed on repeated Init", i)
		}
	}
	if n := key.Sites(); n != 2 {
		t.Fatalf("Sites: got %d, want 2", n)
	}
}

func TestEmptySection(t *testing.T) {
	key := statickey.NewTrueKey()
	s := statickey.NewSection(0)
	if s.Len() != 1 {
		t.Fatalf("Len: got %d, want 1 (sentinel)", s.Len())
	}
	if err := s.Add(&key, 0x1000, 0x2000, false); !errors.Is(err, statickey.ErrSectionFull) {
		t.Fatalf("Add on full: got %v, want ErrSectionFull", err)
	}

	tbl := s.Builder().Codec(arch.AMD64{}).Patcher(&countingPatcher{}).Build()
	tbl.Init()
	if st := tbl.Stats(); st.Sites != 0 || st.Keys != 0 {
		t.Fatalf("Stats: got %+v, want zero sites and keys", st)
	}
	key.Disable()
	if key.Enabled() {
		t.Fatalf("Enabled: got true, want false")
	}
}

func TestSectionSealed(t *testing.T) {
	key := statickey.NewTrueKey()
	s := statickey.NewSection(4)
	_ = s.Builder()
	if err := s.Add(&key, 0x1000, 0x2000, false); !errors.Is(err, statickey.ErrSectionSealed) {
		t.Fatalf("Add after Builder: got %v, want ErrSectionSealed", err)
	}
}

func TestNewRejectsBadLayout(t *testing.T) {
	size := unsafe.Sizeof(statickey.Descriptor{})
	align := unsafe.Alignof(statickey.Descriptor{})
	backing := make([]statickey.Descriptor, 4)
	base := unsafe.Pointer(&backing[0])

	cases := []struct {
		name        string
		start, stop unsafe.Pointer
	}{
		{"inverted", unsafe.Add(base, 2*size), base},
		{"misaligned start", unsafe.Add(base, align/2), unsafe.Add(base, align/2+size)},
		{"partial descriptor", base, unsafe.Add(base, size+1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%p, %p): no panic", tc.start, tc.stop)
				}
			}()
			statickey.New(tc.start, tc.stop)
		})
	}
}

func TestNewOverDescriptorArray(t *testing.T) {
	// stop stays inside the allocation
	backing := make([]statickey.Descriptor, 4)
	start := unsafe.Pointer(&backing[0])
	stop := unsafe.Pointer(&backing[3])

	tbl := statickey.New(start, stop).Codec(arch.AMD64{}).Patcher(&countingPatcher{}).Build()
	if tbl.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", tbl.Len())
	}
	// All sentinels: nothing to resolve
	tbl.Init()
	if st := tbl.Stats(); st.Sites != 0 || st.Keys != 0 {
		t.Fatalf("Stats: got %+v, want zero sites and keys", st)
	}
}

// =============================================================================
// Concurrent initialization
// =============================================================================

func TestConcurrentInit(t *testing.T) {
	if statickey.RaceEnabled {
		t.Skip("atomix publication is invisible to the race detector")
	}

	const sites = 64
	keys := make([]statickey.Key, 8)
	a := newArena(t, arch.AMD64{}, sites)
	s := statickey.NewSection(sites)
	for i := range sites {
		a.emit(t, s, &keys[(i*5)%len(keys)], i%3 == 0)
	}
	tbl := s.Builder().Codec(arch.AMD64{}).Patcher(&countingPatcher{}).Build()

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if i%2 == 0 {
				tbl.Init()
			} else {
				for tbl.TryInit() != nil {
				}
			}
			if !tbl.Initialized() {
				t.Errorf("Init returned before initialization completed")
			}
		}()
	}
	close(start)
	wg.Wait()

	// A second resolution would have corrupted every address
	for i := range keys {
		if n := keys[i].Sites(); n != sites/len(keys) {
			t.Fatalf("key %d Sites: got %d, want %d", i, n, sites/len(keys))
		}
		if err := keys[i].Verify(); err != nil {
			t.Fatalf("key %d Verify: %v", i, err)
		}
	}
	if st := tbl.Stats(); st.Sites != sites || st.Keys != len(keys) {
		t.Fatalf("Stats: got %+v, want Sites=%d Keys=%d", st, sites, len(keys))
	}
}

// gateHandler blocks the first log record until released, holding Init in
// its busy state.
type gateHandler struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (h *gateHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *gateHandler) Handle(context.Context, slog.Record) error {
	h.once.Do(func() {
		close(h.entered)
		<-h.release
	})
	return nil
}

func (h *gateHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *gateHandler) WithGroup(string) slog.Handler      { return h }

func TestTryInitWouldBlock(t *testing.T) {
	if statickey.RaceEnabled {
		t.Skip("atomix publication is invisible to the race detector")
	}

	key := statickey.NewFalseKey()
	a := newArena(t, arch.AMD64{}, 1)
	s := statickey.NewSection(1)
	a.emit(t, s, &key, false)

	h := &gateHandler{entered: make(chan struct{}), release: make(chan struct{})}
	tbl := s.Builder().Codec(arch.AMD64{}).Patcher(&countingPatcher{}).Logger(slog.New(h)).Build()

	done := make(chan struct{})
	go func() {
		defer close(done)
		tbl.Init()
	}()
	<-h.entered

	if err := tbl.TryInit(); !statickey.IsWouldBlock(err) {
		t.Fatalf("TryInit during Init: got %v, want ErrWouldBlock", err)
	}
	if tbl.Initialized() {
		t.Fatalf("Initialized during Init: got true")
	}

	close(h.release)
	<-done
	tbl.Init()
	if err := tbl.TryInit(); err != nil {
		t.Fatalf("TryInit after Init: %v", err)
	}
	if n := key.Sites(); n != 1 {
		t.Fatalf("Sites: got %d, want 1", n)
	}
}
