// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package timebase supplies the cheap, monotonic clock reads the
// scheduler's hot tick loop needs.
//
// Grounded on original_source/util/util.h's get_mono_ts_us/get_real_ts_us
// family (µs/ms monotonic and wall-clock reads) and, for the Go
// implementation, on agilira/lethe's use of
// github.com/agilira/go-timecache: a background ticker refreshes a cached
// time.Time at a fixed resolution so hot-path callers never pay a syscall.
package timebase

import (
	"time"

	"github.com/agilira/go-timecache"
)

// Unit selects the integer tick granularity Now returns, mirroring
// original_source/sched/sched.h's SCHED_TICK_US/SCHED_TICK_MS.
type Unit int

const (
	Micro Unit = iota
	Milli
)

// Clock is a cached monotonic/wall clock cheap enough to call from a
// scheduler tick every iteration.
type Clock struct {
	tc   *timecache.TimeCache
	unit Unit
	mono time.Time
}

// New constructs a Clock refreshed at resolution. unit controls the
// integer granularity Now converts to; resolution should be at least as
// fine as unit (a Millisecond cache backing a Micro-unit tick loses
// sub-millisecond precision, same tradeoff a real embedded timebase
// accepts in exchange for not hammering the OS clock).
func New(unit Unit, resolution time.Duration) *Clock {
	return &Clock{
		tc:   timecache.NewWithResolution(resolution),
		unit: unit,
		mono: time.Now(),
	}
}

// Now returns the current cached time as an integer tick count in the
// Clock's configured Unit, monotonic for the Clock's lifetime.
func (c *Clock) Now() uint64 {
	d := c.tc.CachedTime().Sub(c.mono)
	switch c.unit {
	case Milli:
		return uint64(d.Milliseconds())
	default:
		return uint64(d.Microseconds())
	}
}

// WallClockUnixNano returns the cached wall-clock reading, for timestamping
// log records (mpsclog.RecordHeader.TimestampNS) independent of the
// scheduler's monotonic tick unit.
func (c *Clock) WallClockUnixNano() uint64 {
	return uint64(c.tc.CachedTime().UnixNano())
}

// Stop releases the background refresh goroutine. Callers must Stop every
// Clock they construct.
func (c *Clock) Stop() {
	c.tc.Stop()
}
