// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring_test

import (
	"errors"
	"sync"
	"testing"

	"code.hybscloud.com/motorrt/ring"
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 6, 7, 9, 100} {
		if _, err := ring.New(make([]byte, n), ring.PolicyReject); !errors.Is(err, ring.ErrInvalidCapacity) {
			t.Fatalf("New(cap=%d): got %v, want ErrInvalidCapacity", n, err)
		}
	}
}

// TestScenario1RoundTrip exercises a basic producer/consumer round trip.
func TestScenario1RoundTrip(t *testing.T) {
	r, err := ring.New(make([]byte, 16), ring.PolicyReject)
	if err != nil {
		t.Fatal(err)
	}

	first := make([]byte, 10)
	for i := range first {
		first[i] = byte(i + 1)
	}
	if n := r.Push(first); n != 10 {
		t.Fatalf("first push: got %d, want 10", n)
	}

	second := make([]byte, 10)
	for i := range second {
		second[i] = byte(i + 11)
	}
	if n := r.Push(second); n != 0 {
		t.Fatalf("second push under Reject: got %d, want 0", n)
	}

	if got := r.Available(); got != 10 {
		t.Fatalf("available: got %d, want 10", got)
	}

	out := make([]byte, 10)
	if n := r.Pop(out); n != 10 {
		t.Fatalf("pop: got %d, want 10", n)
	}
	for i, b := range out {
		if b != byte(i+1) {
			t.Fatalf("pop[%d]: got %d, want %d", i, b, i+1)
		}
	}
}

func TestPushTruncate(t *testing.T) {
	r, err := ring.New(make([]byte, 8), ring.PolicyTruncate)
	if err != nil {
		t.Fatal(err)
	}
	n := r.Push(make([]byte, 20))
	if n != 8 {
		t.Fatalf("truncate push: got %d, want 8", n)
	}
	if !r.IsFull() {
		t.Fatal("expected full ring after truncated push")
	}
}

func TestPushOverwriteFreeInvariant(t *testing.T) {
	r, err := ring.New(make([]byte, 8), ring.PolicyOverwrite)
	if err != nil {
		t.Fatal(err)
	}

	r.Push([]byte{1, 2, 3, 4})
	n := r.Push([]byte{5, 6, 7, 8, 9, 10})
	if n != 6 {
		t.Fatalf("overwrite push: got %d, want 6", n)
	}
	if got := r.Free() + r.Available(); got != uint64(r.Cap()) {
		t.Fatalf("free+available = %d, want cap %d", got, r.Cap())
	}

	// The overflow deficit was 2 bytes, so rp moved past 1 and 2 and the
	// ring holds the last 8 bytes pushed.
	out := make([]byte, 8)
	got := r.Pop(out)
	if got != 8 {
		t.Fatalf("pop after overwrite: got %d bytes, want 8 remaining", got)
	}
	want := []byte{3, 4, 5, 6, 7, 8, 9, 10}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("overwritten data[%d]: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestRejectNoSideEffects(t *testing.T) {
	r, err := ring.New(make([]byte, 4), ring.PolicyReject)
	if err != nil {
		t.Fatal(err)
	}
	r.Push([]byte{1, 2, 3, 4})
	before := r.Available()
	if n := r.Push([]byte{5}); n != 0 {
		t.Fatalf("reject: got %d, want 0", n)
	}
	if r.Available() != before {
		t.Fatalf("reject mutated state: before %d, after %d", before, r.Available())
	}
}

// TestConcurrentRoundTrip is a stress test of the wait-free SPSC contract:
// for every sequence of push/pop pairs with no overflow, total bytes popped
// equals total bytes pushed, in byte order.
func TestConcurrentRoundTrip(t *testing.T) {
	if !testing.Short() {
		t.Parallel()
	}

	const total = 1 << 20
	r, err := ring.New(make([]byte, 4096), ring.PolicyReject)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var sent int
		buf := make([]byte, 1)
		for sent < total {
			buf[0] = byte(sent)
			if r.Push(buf) == 1 {
				sent++
			}
		}
	}()

	var mismatches int
	go func() {
		defer wg.Done()
		var recv int
		buf := make([]byte, 1)
		for recv < total {
			if r.Pop(buf) == 1 {
				if buf[0] != byte(recv) {
					mismatches++
				}
				recv++
			}
		}
	}()

	wg.Wait()
	if mismatches != 0 {
		t.Fatalf("got %d byte-order mismatches", mismatches)
	}
}
