// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package motorrt

// RaceEnabled is true when the race detector is active.
// It lets concurrent stress tests for the ring/mpsclog/sched lock-free
// structures skip themselves under the race detector, which reports false
// positives there (it cannot observe happens-before established purely by
// acquire/release atomics on separate variables). This module's own tests
// do not consult it.
const RaceEnabled = true
