// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring provides a wait-free single-producer single-consumer byte
// ring buffer.
//
// Based on Lamport's ring buffer, generalized from the teacher's
// [code.hybscloud.com/lfq.SPSC] element queue to a byte-granular ring with
// a configurable overflow policy. The producer is the sole mutator of the
// write counter; the consumer is the sole mutator of the read counter;
// both counters are 64-bit so wraparound is not observable over the
// process lifetime.
//
// Memory: O(capacity), the buffer is supplied by the caller — no internal
// allocation, no growth.
package ring

import (
	"errors"
	"fmt"

	"code.hybscloud.com/atomix"
)

// Policy selects the behavior of Push when the ring does not have enough
// free space for the requested write.
type Policy int

const (
	// PolicyTruncate writes only what fits and returns the bytes written.
	PolicyTruncate Policy = iota
	// PolicyOverwrite advances the read counter by the deficit, then
	// writes the full request. A concurrent reader may observe a gap —
	// an accepted trade for never blocking the producer.
	PolicyOverwrite
	// PolicyReject writes nothing and returns 0 when the request would
	// overflow the ring.
	PolicyReject
)

// ErrInvalidCapacity is returned by New when cap is not a power of two.
var ErrInvalidCapacity = errors.New("ring: capacity must be a power of two")

// SPSC is a wait-free single-producer single-consumer byte ring.
//
// Enqueue side (Push) must be called by exactly one goroutine; dequeue
// side (Pop) must be called by exactly one (possibly different)
// goroutine. Violating this is undefined behavior, per spec.
type SPSC struct {
	_      pad
	wp     atomix.Uint64 // producer-owned write counter
	_      pad
	rp     atomix.Uint64 // consumer-owned read counter
	_      pad
	buf    []byte
	mask   uint64
	policy Policy
}

type pad [64]byte

// New constructs an SPSC ring over buf. len(buf) must be a power of two.
func New(buf []byte, policy Policy) (*SPSC, error) {
	n := len(buf)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, n)
	}
	return &SPSC{
		buf:    buf,
		mask:   uint64(n) - 1,
		policy: policy,
	}, nil
}

// Reset rewinds both counters to zero. Not safe to call concurrently with
// Push or Pop.
func (r *SPSC) Reset() {
	r.rp.StoreRelaxed(0)
	r.wp.StoreRelaxed(0)
}

// Cap returns the ring capacity in bytes.
func (r *SPSC) Cap() int {
	return int(r.mask + 1)
}

// IsEmpty reports whether the ring currently has no available bytes.
func (r *SPSC) IsEmpty() bool {
	return r.Available() == 0
}

// IsFull reports whether the ring currently has no free bytes.
func (r *SPSC) IsFull() bool {
	return r.Free() == 0
}

// Available returns the number of bytes available to read.
func (r *SPSC) Available() uint64 {
	return r.wp.LoadAcquire() - r.rp.LoadAcquire()
}

// Free returns the number of bytes free to write.
func (r *SPSC) Free() uint64 {
	return uint64(r.Cap()) - r.Available()
}

// Push writes p into the ring (producer only) and returns the number of
// bytes actually written.
//
// Under PolicyTruncate, a request that does not fully fit is truncated to
// the available free space. Under PolicyOverwrite, the consumer's read
// counter is advanced to make room and the full request is written. Under
// PolicyReject, a request that does not fit is rejected entirely (returns
// 0, no side effects).
//
// Memory ordering: relaxed load of wp, acquire load of rp, plain memcpy
// into the buffer, release store of wp+n — the release publishes the
// bytes to the consumer.
func (r *SPSC) Push(p []byte) int {
	wp := r.wp.LoadRelaxed()
	rp := r.rp.LoadAcquire()

	n := r.applyPolicy(wp, rp, uint64(len(p)))
	if n == 0 {
		return 0
	}

	off := wp & r.mask
	first := min(n, uint64(r.Cap())-off)
	copy(r.buf[off:], p[:first])
	copy(r.buf[:n-first], p[first:n])

	r.wp.StoreRelease(wp + n)
	return int(n)
}

// applyPolicy returns the number of bytes that should actually be written
// given the current wp/rp snapshot and the overflow policy. It may advance
// rp as a side effect (PolicyOverwrite only).
func (r *SPSC) applyPolicy(wp, rp, nbytes uint64) uint64 {
	free := uint64(r.Cap()) - (wp - rp)
	if nbytes <= free {
		return nbytes
	}

	switch r.policy {
	case PolicyTruncate:
		return free
	case PolicyOverwrite:
		r.rp.AddAcqRel(nbytes - free)
		return nbytes
	case PolicyReject:
		return 0
	default:
		return 0
	}
}

// Pop reads up to len(p) bytes from the ring (consumer only) and returns
// the number of bytes actually read.
//
// Memory ordering: relaxed load of rp, acquire load of wp, plain memcpy
// out of the buffer, release store of rp+n.
func (r *SPSC) Pop(p []byte) int {
	rp := r.rp.LoadRelaxed()
	wp := r.wp.LoadAcquire()

	avail := wp - rp
	n := uint64(len(p))
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	off := rp & r.mask
	first := min(n, uint64(r.Cap())-off)
	copy(p[:first], r.buf[off:])
	copy(p[first:n], r.buf[:n-first])

	r.rp.StoreRelease(rp + n)
	return int(n)
}
