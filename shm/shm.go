// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shm maps a named region of shared memory and layers a
// wait-free SPSC byte ring over it, so two processes (or a process and
// an external tool attached to the same mapping) can exchange a byte
// stream without a kernel round trip per message.
//
// Grounded on original_source/shm/shm.h: shm_init's open-existing-or-
// create dance, is_creator bookkeeping, and an spsc_t control block
// living at the start of the mapping that shm_read/shm_write wrap with
// spsc_read_buf/spsc_write_buf.
//
// This package does not literally embed a [code.hybscloud.com/motorrt/ring.SPSC]
// in the mapping the way spsc_t sits inline in shm_t's C struct: ring.SPSC
// carries a buf []byte field, and a Go slice header is a pointer plus a
// length, valid only in the address space that wrote it. Two processes
// mapping the same shared memory have independent address spaces, so a
// slice header one process stores there is garbage to the other. Instead
// the control block at the front of the mapping holds only the
// producer/consumer counters; each process builds its own local slice
// over its own mapping of the data region that follows and pairs it with
// pointers into the shared counters. Read and Write then run the same
// Lamport ring algorithm as package ring's Push/Pop, just addressed
// through those pointers instead of struct-value fields.
package shm

import (
	"errors"
	"fmt"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// Access selects the mapping's protection, mirroring shm_access_e.
type Access int

const (
	ReadOnly Access = iota
	ReadWrite
)

// ErrInvalidCapacity is returned by Open when cap leaves no room for the
// control block plus a power-of-two data region.
var ErrInvalidCapacity = errors.New("shm: invalid capacity")

// backend is the platform-specific half of a mapping: obtain nbytes of
// addressable memory backed by a named shared-memory object, reporting
// whether this call created it.
type backend interface {
	bytes() []byte
	isCreator() bool
	close() error
}

type pad [64]byte

// header is the fixed-layout control block occupying the front of every
// mapping: the producer-owned write counter and consumer-owned read
// counter, cache-line padded the same way ring.SPSC pads them, and
// nothing else — see the package doc for why the data buffer itself
// cannot live here.
type header struct {
	_  pad
	wp atomix.Uint64
	_  pad
	rp atomix.Uint64
	_  pad
}

// controlSize is the byte footprint of header, computed once via
// unsafe.Sizeof so callers don't have to reason about alignment
// themselves.
var controlSize = int(unsafe.Sizeof(header{}))

// SHM is a byte stream backed by a shared-memory mapping. The zero value
// is not usable; construct with Open.
type SHM struct {
	backend backend
	hdr     *header
	buf     []byte
	mask    uint64
}

// Open maps (creating if absent) a cap-byte shared-memory region named
// name and layers an SPSC ring over the bytes following its control
// block. cap must be large enough for the control block plus a
// power-of-two data region.
//
// Overflow is handled the way the original's spsc_write_buf call site
// treats it: a Write that would overrun the currently-unread backlog
// writes nothing and returns 0, mirroring ring.PolicyReject.
func Open(name string, access Access, cap int) (*SHM, error) {
	if cap <= controlSize {
		return nil, fmt.Errorf("%w: %d bytes leaves no room for a %d-byte control block", ErrInvalidCapacity, cap, controlSize)
	}
	dataLen := cap - controlSize
	if dataLen < 2 || dataLen&(dataLen-1) != 0 {
		return nil, fmt.Errorf("%w: data region %d bytes must be a power of two", ErrInvalidCapacity, dataLen)
	}

	b, err := openBackend(name, access, cap)
	if err != nil {
		return nil, err
	}

	mem := b.bytes()
	hdr := (*header)(unsafe.Pointer(&mem[0]))
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&mem[controlSize])), dataLen)

	if b.isCreator() {
		hdr.wp.StoreRelaxed(0)
		hdr.rp.StoreRelaxed(0)
	}

	return &SHM{backend: b, hdr: hdr, buf: buf, mask: uint64(dataLen) - 1}, nil
}

// IsCreator reports whether this process created the mapping (vs.
// attaching to one another process already created).
func (s *SHM) IsCreator() bool {
	return s.backend.isCreator()
}

// Read pops up to len(p) bytes from the ring into p, mirroring
// shm_read. It never blocks; a short or zero read means the ring
// currently holds less than len(p) bytes.
func (s *SHM) Read(p []byte) int {
	rp := s.hdr.rp.LoadRelaxed()
	wp := s.hdr.wp.LoadAcquire()

	avail := wp - rp
	n := uint64(len(p))
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	cap := s.mask + 1
	off := rp & s.mask
	first := min(n, cap-off)
	copy(p[:first], s.buf[off:])
	copy(p[first:n], s.buf[:n-first])

	s.hdr.rp.StoreRelease(rp + n)
	return int(n)
}

// Write pushes p into the ring, mirroring shm_write. A write that would
// overflow the currently-unread backlog writes nothing and returns 0.
func (s *SHM) Write(p []byte) int {
	wp := s.hdr.wp.LoadRelaxed()
	rp := s.hdr.rp.LoadAcquire()

	cap := s.mask + 1
	free := cap - (wp - rp)
	n := uint64(len(p))
	if n == 0 || n > free {
		return 0
	}

	off := wp & s.mask
	first := min(n, cap-off)
	copy(s.buf[off:], p[:first])
	copy(s.buf[:n-first], p[first:n])

	s.hdr.wp.StoreRelease(wp + n)
	return int(n)
}

// Close unmaps the region and, for the creating process, releases the
// backing shared-memory object.
func (s *SHM) Close() error {
	return s.backend.close()
}
