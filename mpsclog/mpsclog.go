// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mpsclog provides a lock-free multi-producer single-consumer
// variable-length record log.
//
// Producers reserve a byte range of a shared arena via Acquire, write their
// record, then Publish. The single consumer drains committed ranges via
// Consume/Release. Producers advertise their in-flight offset (seenOff) so
// the consumer can compute a safe drain horizon without a shared lock — the
// design is lock-free (every completed step makes global progress) but not
// wait-free (a starved producer may loop on CAS contention).
//
// Grounded on the teacher's CAS-retry shape in
// [code.hybscloud.com/lfq.MPSCCompactIndirect] and on the original
// container/mpsc.h reservation algorithm this package generalizes to
// variable-length byte records.
package mpsclog

import (
	"errors"
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/motorrt"
)

const (
	offMask         = 0x00000000FFFFFFFF
	wrapLockBit     = 0x8000000000000000
	offMax          = ^uint64(0) &^ wrapLockBit
	wrapCounter     = 0x7FFFFFFF00000000
	wrapCounterStep = 0x100000000
)

func wrapIncr(x uint64) uint64 {
	return (x + wrapCounterStep) & wrapCounter
}

// ErrInvalidArgument is returned when construction parameters are invalid.
var ErrInvalidArgument = errors.New("mpsclog: invalid argument")

// Producer is a registered writer slot. The zero value is unregistered.
type Producer struct {
	_          pad
	seenOff    atomix.Uint64
	_          pad
	registered atomix.Bool
}

type pad [64]byte

// Log is a byte arena of capacity cap shared by many producers and one
// consumer.
type Log struct {
	_         pad
	next      atomix.Uint64 // low 32 bits: offset; bits 32-62: wrap counter; bit 63: wrap-lock
	_         pad
	written   atomix.Uint64 // consumer-owned drain position
	_         pad
	end       atomix.Uint64 // offMax when unset
	_         pad
	arena     []byte
	cap       uint64
	producers []Producer
}

// New constructs a Log over arena with a fixed producer table. Capacity is
// len(arena) and is not required to be a power of two — wrap is linear, not
// masked.
func New(arena []byte, producers []Producer) (*Log, error) {
	if len(arena) == 0 {
		return nil, fmt.Errorf("%w: empty arena", ErrInvalidArgument)
	}
	if len(producers) == 0 {
		return nil, fmt.Errorf("%w: empty producer table", ErrInvalidArgument)
	}
	l := &Log{
		arena:     arena,
		cap:       uint64(len(arena)),
		producers: producers,
	}
	l.end.StoreRelaxed(offMax)
	return l, nil
}

// Register claims producer slot id and marks it live. id must be a valid
// index into the producer table supplied to New.
func (l *Log) Register(id int) (*Producer, error) {
	if id < 0 || id >= len(l.producers) {
		return nil, fmt.Errorf("%w: producer id %d out of range", ErrInvalidArgument, id)
	}
	p := &l.producers[id]
	p.seenOff.StoreRelaxed(offMax)
	p.registered.StoreRelease(true)
	return p, nil
}

// Unregister retires a producer slot. The caller must ensure no further
// Acquire/Write calls are made against p afterward.
func (l *Log) Unregister(p *Producer) {
	p.registered.StoreRelease(false)
}

// stableNextOff spins (bounded exponential backoff) while the wrap-lock bit
// of next is set, signaling a wrap transition in progress.
func (l *Log) stableNextOff() uint64 {
	sw := spin.Wait{}
	for {
		next := l.next.LoadAcquire()
		if next&wrapLockBit == 0 {
			return next
		}
		sw.Once()
	}
}

// stableSeenOff spins while the wrap-lock bit of p's seenOff is set,
// signaling the producer is mid-reservation.
func (l *Log) stableSeenOff(p *Producer) uint64 {
	sw := spin.Wait{}
	for {
		seen := p.seenOff.LoadAcquire()
		if seen&wrapLockBit == 0 {
			return seen
		}
		sw.Once()
	}
}

// Acquire reserves n bytes for p. On success it returns the offset into the
// arena the caller must write to (0 after a wrap). On failure it returns
// [motorrt.ErrWouldBlock]: the consumer has not drained far enough, or a
// wrap reservation would collide with the consumer. No data already in the
// log is lost and no record is ever truncated mid-write.
func (l *Log) Acquire(p *Producer, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: non-positive length %d", ErrInvalidArgument, n)
	}
	if uint64(n) > l.cap {
		return 0, fmt.Errorf("%w: record length %d exceeds capacity %d", ErrInvalidArgument, n, l.cap)
	}

	sw := spin.Wait{}
	var next, target uint64
	for {
		seen := l.stableNextOff()
		next = seen & offMask
		p.seenOff.StoreRelaxed(next | wrapLockBit)

		written := l.written.LoadAcquire()
		target = next + uint64(n)

		if next < written && target >= written {
			p.seenOff.StoreRelease(offMax)
			return 0, motorrt.ErrWouldBlock
		}

		if target >= l.cap {
			exceed := target > l.cap
			if exceed {
				target = wrapLockBit | uint64(n)
			} else {
				target = 0
			}
			if (target & offMask) >= written {
				p.seenOff.StoreRelease(offMax)
				return 0, motorrt.ErrWouldBlock
			}
			target |= wrapIncr(seen & wrapCounter)
		} else {
			target |= seen & wrapCounter
		}

		if l.next.CompareAndSwapAcqRel(seen, target) {
			break
		}
		sw.Once()
	}

	p.seenOff.StoreRelaxed(p.seenOff.LoadRelaxed() &^ wrapLockBit)

	off := next
	if target&wrapLockBit != 0 {
		l.end.StoreRelaxed(next)
		l.next.StoreRelease(target &^ wrapLockBit)
		off = 0
	}
	return int(off), nil
}

// Publish marks p's reservation as complete and visible to the consumer.
// Records become consumable in the order their Publish stores land.
func (l *Log) Publish(p *Producer) {
	p.seenOff.StoreRelease(offMax)
}

// Write is Acquire + copy + Publish.
func (l *Log) Write(p *Producer, b []byte) error {
	off, err := l.Acquire(p, len(b))
	if err != nil {
		return err
	}
	copy(l.arena[off:], b)
	l.Publish(p)
	return nil
}

// Consume returns the next contiguous committed byte range
// [offset, offset+n) ready for the consumer to process. ok is false if
// nothing is ready. The caller must process exactly n bytes and then call
// Release(n).
func (l *Log) Consume() (offset, n int, ok bool) {
	for {
		written := l.written.LoadAcquire()
		next := l.stableNextOff() & offMask
		if written == next {
			return 0, 0, false
		}

		ready := uint64(offMax)
		for i := range l.producers {
			p := &l.producers[i]
			if !p.registered.LoadRelaxed() {
				continue
			}
			seen := l.stableSeenOff(p)
			if seen >= written && seen < ready {
				ready = seen
			}
		}

		if next < written {
			end := l.end.LoadRelaxed()
			if end == offMax {
				end = l.cap
			}
			if ready == offMax && written == end {
				l.end.StoreRelaxed(offMax)
				l.written.StoreRelease(0)
				continue
			}
			if end < ready {
				ready = end
			}
		} else if ready > next {
			ready = next
		}

		return int(written), int(ready - written), true
	}
}

// Release advances the drain position by n bytes, wrapping to 0 on an
// exact-capacity match. The caller must have processed exactly the bytes
// returned by the preceding Consume.
func (l *Log) Release(n int) {
	next := l.written.LoadRelaxed() + uint64(n)
	if next == l.cap {
		next = 0
	}
	l.written.StoreRelease(next)
}

// Cap returns the arena capacity in bytes.
func (l *Log) Cap() int {
	return int(l.cap)
}

// Peek exposes the underlying arena for callers that write/read record
// bytes directly (WriteRecord/ReadRecord, or hand-rolled framing). The
// returned slice aliases the arena supplied to New.
func (l *Log) Peek() []byte {
	return l.arena
}
