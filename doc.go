// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package motorrt is a reusable runtime substrate for motor-control and
// embedded data-plane systems.
//
// The interesting engineering is not the individual DSP blocks but the
// concurrent runtime that glues them together:
//
//   - [code.hybscloud.com/motorrt/ring]: a wait-free single-producer
//     single-consumer byte ring with a configurable overflow policy.
//   - [code.hybscloud.com/motorrt/mpsclog]: a lock-free multi-producer
//     single-consumer variable-length record log with dynamic producer
//     registration.
//   - [code.hybscloud.com/motorrt/sched]: a red-black-tree-ordered
//     cooperative task scheduler (plus a first-come-first-served variant).
//   - [code.hybscloud.com/motorrt/foc]: a Field-Oriented-Control state
//     machine that drives those primitives from a periodic tick.
//   - [code.hybscloud.com/motorrt/shm]: shared-memory framing that runs the
//     ring.SPSC algorithm, with its counters kept in the mapping, over a
//     named OS mapping for cross-process rendezvous.
//
// # Data flow
//
// A platform-bound worker goroutine repeatedly calls the scheduler's tick
// function; the scheduler selects the task with the smallest
// next-execution timestamp (tie-broken by priority), invokes its callback,
// and reinserts it. One such callback is the FOC tick, which reads ADC
// samples, runs the Clarke→observer→select-theta→Park→PI→inverse-Park→SVPWM
// pipeline, and writes PWM duties. FOC failures and telemetry are pushed as
// log records through the mpsclog to a separate flush goroutine that drains
// records and writes them to a [code.hybscloud.com/motorrt/logsink]. Waveform
// samples destined for another process are pushed through the shm
// package's SPSC ring in a shared mapping.
//
// # Dependencies
//
// This module uses [code.hybscloud.com/iox] for semantic errors and
// backoff, [code.hybscloud.com/atomix] for atomics with explicit memory
// ordering, and [code.hybscloud.com/spin] for CAS-retry backoff, the same
// concurrency stack as [code.hybscloud.com/lfq]. Preserve the exact memory
// orders documented on each type — relaxed/acquire/release pairings are
// load-bearing; do not upgrade to sequential consistency "for safety", it
// breaks the wait-freedom and lock-freedom claims.
package motorrt
