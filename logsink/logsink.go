// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logsink formats and drains the records a [mpsclog.Log] carries,
// and gives producers a leveled Write API in front of
// [mpsclog.WriteRecord].
//
// Grounded on original_source/log/log.h (log_t, log_data/debug/info/
// warn/error, log_flush's busy-gated drain loop) and
// original_source/logger/logger.h (the simpler fifo-backed sibling that
// contributed the "[%llu] "-prefixed wire format this package
// generalizes to "[ts][id]payload"). f_flush's (fp, bytes, len) callback
// becomes an io.Writer; f_get_ts becomes a caller-supplied func() uint64
// (typically [code.hybscloud.com/motorrt/timebase.Clock.WallClockUnixNano]).
package logsink

import (
	"context"
	"fmt"
	"io"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/motorrt/mpsclog"
)

// Level gates which records a Logger actually writes, mirroring
// log_level_e/logger_level_e. Lower values are more verbose; a Logger
// configured at LevelWarn drops LevelData/Debug/Info writes.
type Level int

const (
	LevelData Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is a leveled producer-side handle onto a mpsclog.Log, mirroring
// log_data/log_debug/log_info/log_warn/log_error's shared log_write core.
type Logger struct {
	log      *mpsclog.Log
	producer *mpsclog.Producer
	id       uint32
	level    Level
	now      func() uint64
}

// New registers id as a producer on log and returns a Logger gated at
// level. now supplies the wall-clock timestamp stamped into every
// record; pass a [code.hybscloud.com/motorrt/timebase.Clock].WallClockUnixNano
// in production, or any monotonically-reasonable func in tests.
func New(log *mpsclog.Log, id uint32, level Level, now func() uint64) (*Logger, error) {
	p, err := log.Register(int(id))
	if err != nil {
		return nil, err
	}
	return &Logger{log: log, producer: p, id: id, level: level, now: now}, nil
}

// Close unregisters the Logger's producer slot.
func (l *Logger) Close() {
	l.log.Unregister(l.producer)
}

// Write appends a record at level if level is at or above the Logger's
// configured threshold, mirroring log_data/log_debug/.../log_error's
// "if (cfg->e_level > level) return" gate. Returns nil without writing
// when gated out or when the reservation would block because the consumer
// is behind (mirrors log_write's silent drop on a failed mpsc_acquire);
// any other Acquire error, such as a record longer than the arena, is
// returned.
func (l *Logger) Write(level Level, payload []byte) error {
	if level < l.level {
		return nil
	}
	err := mpsclog.WriteRecord(l.log, l.producer, l.now(), l.id, payload)
	if err != nil && !iox.IsNonFailure(err) {
		return err
	}
	return nil
}

func (l *Logger) Data(payload []byte) error  { return l.Write(LevelData, payload) }
func (l *Logger) Debug(payload []byte) error { return l.Write(LevelDebug, payload) }
func (l *Logger) Info(payload []byte) error  { return l.Write(LevelInfo, payload) }
func (l *Logger) Warn(payload []byte) error  { return l.Write(LevelWarn, payload) }
func (l *Logger) Error(payload []byte) error { return l.Write(LevelError, payload) }

// format renders a record as "[ts][id]payload", mirroring log_flush's
// snprintf("[%llu][%llu]", entry.ts, entry.id) prefix.
func format(h mpsclog.RecordHeader, payload []byte) []byte {
	return fmt.Appendf(nil, "[%d][%d]%s", h.TimestampNS, h.ProducerID, payload)
}

// Drain loops Consume/Release, formatting and writing every committed
// record to w until ctx is canceled (returning ctx.Err()) or a write to w
// fails; while nothing is committed it keeps polling with backoff. Mirrors
// log_flush's "while (!busy) drain one entry" loop, run continuously by
// a dedicated flush goroutine rather than polled synchronously —
// log_cfg_t's LOG_MODE_ASYNC vs LOG_MODE_SYNC distinction collapses to
// "the caller decides how often to invoke Drain" in this port.
//
// A single Consume call returns a contiguous committed byte range, not a
// single record — concurrent producers routinely publish several records
// into the same range before the consumer wakes up. Drain walks that
// whole range record by record with ReadRecordAt rather than assuming it
// holds exactly one record.
func Drain(ctx context.Context, log *mpsclog.Log, w io.Writer) error {
	backoff := iox.Backoff{}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		offset, n, ok := log.Consume()
		if !ok {
			backoff.Wait()
			continue
		}
		backoff.Reset()

		limit := offset + n
		for offset < limit {
			h, payload, recordLen := mpsclog.ReadRecordAt(log, offset, limit)
			if _, err := w.Write(format(h, payload)); err != nil {
				log.Release(n)
				return fmt.Errorf("logsink: write: %w", err)
			}
			offset += recordLen
		}
		log.Release(n)
	}
}
