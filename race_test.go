// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package statickey_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/statickey"
	"code.hybscloud.com/statickey/arch"
)

// TestRaceSectionLifecycle runs the whole table path with checkptr active:
// build over a Go-allocated section, resolve and link, toggle, verify.
// Any integer address turned back into a Go heap pointer aborts the test
// binary here.
func TestRaceSectionLifecycle(t *testing.T) {
	for _, c := range []arch.Codec{arch.AMD64{}, arch.ARM64{}, arch.RISCV64{}} {
		t.Run(c.Name(), func(t *testing.T) {
			keys := []statickey.Key{statickey.NewFalseKey(), statickey.NewTrueKey()}
			a := newArena(t, c, 6)
			s := statickey.NewSection(6)
			var sites []site
			for i := range 6 {
				sites = append(sites, a.emit(t, s, &keys[i%2], i%3 == 0))
			}
			tbl := s.Builder().Codec(c).Patcher(&countingPatcher{}).Build()
			tbl.Init()

			for i := range keys {
				if n := keys[i].Sites(); n != 3 {
					t.Fatalf("key %d Sites: got %d, want 3", i, n)
				}
			}
			for round := range 2 {
				keys[0].Enable()
				keys[1].Disable()
				for i, st := range sites {
					if got := st.eval(t); got != (i%2 == 0) {
						t.Fatalf("round %d site %d: got %v, want %v", round, i, got, i%2 == 0)
					}
				}
				for i := range keys {
					if err := keys[i].Verify(); err != nil {
						t.Fatalf("round %d key %d Verify: %v", round, i, err)
					}
				}
				keys[0].Disable()
				keys[1].Enable()
			}
		})
	}
}

// TestRaceEnabledWhileToggling reads a key's state from many goroutines
// while one goroutine toggles it.
func TestRaceEnabledWhileToggling(t *testing.T) {
	key := statickey.NewFalseKey()
	a := newArena(t, arch.AMD64{}, 2)
	s := statickey.NewSection(2)
	a.emit(t, s, &key, false)
	a.emit(t, s, &key, true)
	tbl := s.Builder().Codec(arch.AMD64{}).Patcher(&countingPatcher{}).Build()
	tbl.Init()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = key.Enabled()
				}
			}
		}()
	}
	for range 100 {
		key.Enable()
		key.Disable()
	}
	close(stop)
	wg.Wait()

	if key.Enabled() {
		t.Fatalf("Enabled: got true, want false")
	}
	if err := key.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if st := tbl.Stats(); st.Toggles != 200 {
		t.Fatalf("Toggles: got %d, want 200", st.Toggles)
	}
}
