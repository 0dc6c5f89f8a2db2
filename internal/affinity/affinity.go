// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package affinity pins the calling goroutine's backing OS thread to a
// single CPU, mirroring original_source/sched/thread.h's
// sched_bind_thread_to_cpu on platforms that support it.
//
// Grounded on original_source/sched/thread.h (Linux pthread_setaffinity_np
// / Windows SetThreadAffinityMask dispatch), re-expressed as a
// runtime.LockOSThread'd goroutine plus a platform-specific syscall via
// golang.org/x/sys/unix on Linux and a no-op elsewhere.
package affinity

// Bind pins the current OS thread to cpuID. The caller must have already
// called runtime.LockOSThread in the same goroutine — binding a thread
// that Go may reschedule onto a different goroutine is meaningless.
func Bind(cpuID int) error {
	return bind(cpuID)
}
