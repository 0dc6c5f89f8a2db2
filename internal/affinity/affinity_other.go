// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package affinity

// bind is a no-op on platforms without a cheap thread-affinity syscall
// exposed through golang.org/x/sys/unix (e.g. Windows — SetThreadAffinityMask
// requires a real thread handle, which the Go runtime does not expose).
func bind(cpuID int) error {
	return nil
}
