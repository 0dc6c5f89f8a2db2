// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shm_test

import (
	"fmt"
	"testing"

	"code.hybscloud.com/motorrt/shm"
)

// controlBlock is the size of shm's control block at the front of the
// mapping: three 64-byte cache-line pads around the 8-byte wp and rp
// counters.
const controlBlock = 3*64 + 2*8

func openTemp(t *testing.T, cap int) *shm.SHM {
	t.Helper()
	name := fmt.Sprintf("motorrt-test-%s-%d", t.Name(), cap)
	s, err := shm.Open(name, shm.ReadWrite, cap)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesAndReportsCreator(t *testing.T) {
	s := openTemp(t, controlBlock+16)
	if !s.IsCreator() {
		t.Fatal("first Open of a fresh name should report IsCreator")
	}
}

func TestOpenRejectsNonPowerOfTwoData(t *testing.T) {
	if _, err := shm.Open("motorrt-test-bad-cap", shm.ReadWrite, controlBlock+15); err == nil {
		t.Fatal("expected an error for a non-power-of-two data region")
	}
}

func TestOpenRejectsCapacityBelowControlBlock(t *testing.T) {
	if _, err := shm.Open("motorrt-test-too-small", shm.ReadWrite, 1); err == nil {
		t.Fatal("expected an error for a capacity smaller than the control block")
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	s := openTemp(t, controlBlock+16)

	n := s.Write([]byte("hello"))
	if n != 5 {
		t.Fatalf("Write = %d, want 5", n)
	}

	buf := make([]byte, 5)
	n = s.Read(buf)
	if n != 5 || string(buf) != "hello" {
		t.Fatalf("Read = %d %q, want 5 %q", n, buf, "hello")
	}
}

func TestReadReturnsZeroWhenEmpty(t *testing.T) {
	s := openTemp(t, controlBlock+16)

	buf := make([]byte, 4)
	if n := s.Read(buf); n != 0 {
		t.Fatalf("Read on empty ring = %d, want 0", n)
	}
}

func TestWriteRejectsWhenBacklogWouldOverflow(t *testing.T) {
	s := openTemp(t, controlBlock+16)

	if n := s.Write(make([]byte, 16)); n != 16 {
		t.Fatalf("filling Write = %d, want 16", n)
	}
	if n := s.Write([]byte{0xff}); n != 0 {
		t.Fatalf("overflowing Write = %d, want 0 (PolicyReject semantics)", n)
	}
}

func TestReadWriteWrapAcrossBoundary(t *testing.T) {
	s := openTemp(t, controlBlock+16)

	// Prime the ring so the next write straddles the wrap point.
	if n := s.Write(make([]byte, 12)); n != 12 {
		t.Fatalf("priming Write = %d, want 12", n)
	}
	if n := s.Read(make([]byte, 12)); n != 12 {
		t.Fatalf("priming Read = %d, want 12", n)
	}

	payload := []byte("0123456789ab")
	if n := s.Write(payload); n != len(payload) {
		t.Fatalf("wrapping Write = %d, want %d", n, len(payload))
	}
	got := make([]byte, len(payload))
	if n := s.Read(got); n != len(payload) || string(got) != string(payload) {
		t.Fatalf("wrapping Read = %d %q, want %d %q", n, got, len(payload), payload)
	}
}
