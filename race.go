// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package statickey

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent Init tests: the init flag is an atomix
// value, whose acquire/release edges the detector does not see, so the
// plain descriptor and key writes it publishes are reported as races.
const RaceEnabled = true
