// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rbtree_test

import (
	"math/rand"
	"testing"

	"code.hybscloud.com/motorrt/internal/rbtree"
)

// buildTree returns a tree over n slots keyed by a caller-supplied int
// slice, plus the keys for assertions.
func buildTree(keys []int) *rbtree.Tree {
	nodes := make([]rbtree.Node, len(keys))
	return rbtree.New(nodes, func(a, b int32) bool {
		if keys[a] != keys[b] {
			return keys[a] < keys[b]
		}
		return a < b
	})
}

func inOrder(t *rbtree.Tree) []int32 {
	var out []int32
	for i := t.First(); i != rbtree.Nil; i = t.Next(i) {
		out = append(out, i)
	}
	return out
}

func TestInsertProducesSortedOrder(t *testing.T) {
	keys := []int{50, 20, 80, 10, 30, 70, 90, 5, 15, 25, 35, 60, 75, 85, 95}
	tr := buildTree(keys)
	for i := range keys {
		tr.Insert(int32(i))
	}

	order := inOrder(tr)
	if len(order) != len(keys) {
		t.Fatalf("got %d elements, want %d", len(order), len(keys))
	}
	for i := 1; i < len(order); i++ {
		if keys[order[i-1]] > keys[order[i]] {
			t.Fatalf("out of order at %d: %d before %d", i, keys[order[i-1]], keys[order[i]])
		}
	}
	if got := keys[tr.First()]; got != 5 {
		t.Fatalf("First() key = %d, want 5", got)
	}
	if got := keys[tr.Last()]; got != 95 {
		t.Fatalf("Last() key = %d, want 95", got)
	}
}

func TestErasePreservesRemainingOrder(t *testing.T) {
	keys := make([]int, 100)
	rng := rand.New(rand.NewSource(1))
	for i := range keys {
		keys[i] = rng.Intn(1000)
	}
	tr := buildTree(keys)
	for i := range keys {
		tr.Insert(int32(i))
	}

	// Erase every other element, in a deliberately non-monotonic order.
	var erased []int32
	for i := 0; i < len(keys); i += 2 {
		erased = append(erased, int32(i))
	}
	rng.Shuffle(len(erased), func(i, j int) { erased[i], erased[j] = erased[j], erased[i] })
	for _, idx := range erased {
		tr.Erase(idx)
	}

	order := inOrder(tr)
	if want := len(keys) - len(erased); len(order) != want {
		t.Fatalf("got %d remaining, want %d", len(order), want)
	}
	for i := 1; i < len(order); i++ {
		if keys[order[i-1]] > keys[order[i]] {
			t.Fatalf("out of order at %d: %d before %d", i, keys[order[i-1]], keys[order[i]])
		}
	}
	erasedSet := make(map[int32]bool, len(erased))
	for _, idx := range erased {
		erasedSet[idx] = true
	}
	for _, idx := range order {
		if erasedSet[idx] {
			t.Fatalf("slot %d still present after erase", idx)
		}
	}
}

func TestDrainViaRepeatedFirstErase(t *testing.T) {
	keys := []int{9, 4, 7, 1, 2, 8, 6, 3, 5, 0}
	tr := buildTree(keys)
	for i := range keys {
		tr.Insert(int32(i))
	}

	var drained []int
	for {
		first := tr.First()
		if first == rbtree.Nil {
			break
		}
		drained = append(drained, keys[first])
		tr.Erase(first)
	}

	if len(drained) != len(keys) {
		t.Fatalf("drained %d, want %d", len(drained), len(keys))
	}
	for i := 1; i < len(drained); i++ {
		if drained[i-1] > drained[i] {
			t.Fatalf("drain order violated: %d before %d", drained[i-1], drained[i])
		}
	}
	if tr.Root() != rbtree.Nil {
		t.Fatal("tree not empty after full drain")
	}
}

func TestTiesBrokenBySlotIndex(t *testing.T) {
	keys := []int{1, 1, 1, 1}
	tr := buildTree(keys)
	for i := range keys {
		tr.Insert(int32(i))
	}
	order := inOrder(tr)
	for i, idx := range order {
		if idx != int32(i) {
			t.Fatalf("tie-break order[%d] = %d, want %d", i, idx, i)
		}
	}
}
