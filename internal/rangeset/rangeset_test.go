package rangeset_test

import (
	"testing"

	"github.com/blocksync/zsyncgo/internal/rangeset"
	"github.com/google/go-cmp/cmp"
	"github.com/hooklift/assert"
)

func dump(s *rangeset.Set) [][2]int64 {
	out := make([][2]int64, s.Len())
	for i := range out {
		lo, hi := s.Bounds(i)
		out[i] = [2]int64{lo, hi}
	}
	return out
}

func TestAddSinglePoints(t *testing.T) {
	var s rangeset.Set
	s.Add(5)

	assert.Cond(t, s.AlreadyGot(5), "5 should be known")
	assert.Cond(t, !s.AlreadyGot(4), "4 should not be known")
	assert.Cond(t, !s.AlreadyGot(6), "6 should not be known")

	if diff := cmp.Diff([][2]int64{{5, 5}}, dump(&s)); diff != "" {
		t.Fatalf("unexpected ranges: %s", diff)
	}
}

func TestAddExtendsAdjacentRange(t *testing.T) {
	var s rangeset.Set
	s.Add(5)
	s.Add(6)
	s.Add(4)

	if diff := cmp.Diff([][2]int64{{4, 6}}, dump(&s)); diff != "" {
		t.Fatalf("unexpected ranges: %s", diff)
	}
}

func TestAddMergesGap(t *testing.T) {
	var s rangeset.Set
	s.Add(1)
	s.Add(3)

	if diff := cmp.Diff([][2]int64{{1, 1}, {3, 3}}, dump(&s)); diff != "" {
		t.Fatalf("unexpected ranges before merge: %s", diff)
	}

	s.Add(2)

	if diff := cmp.Diff([][2]int64{{1, 3}}, dump(&s)); diff != "" {
		t.Fatalf("unexpected ranges after merge: %s", diff)
	}
}

func TestAddIsNoopWhenAlreadyKnown(t *testing.T) {
	var s rangeset.Set
	s.Add(5)
	s.Add(5)

	if diff := cmp.Diff([][2]int64{{5, 5}}, dump(&s)); diff != "" {
		t.Fatalf("unexpected ranges: %s", diff)
	}
}

func TestNextKnown(t *testing.T) {
	var s rangeset.Set
	s.Add(2)
	s.Add(3)
	s.Add(7)

	assert.Equals(t, int64(2), s.NextKnown(2, 10))
	assert.Equals(t, int64(2), s.NextKnown(0, 10))
	assert.Equals(t, int64(7), s.NextKnown(4, 10))
	assert.Equals(t, int64(10), s.NextKnown(8, 10))
}

func TestRangesStayDisjointAndSorted(t *testing.T) {
	var s rangeset.Set
	for _, x := range []int64{9, 0, 5, 1, 8, 2, 6, 3, 7, 4} {
		s.Add(x)
	}

	if diff := cmp.Diff([][2]int64{{0, 9}}, dump(&s)); diff != "" {
		t.Fatalf("unexpected ranges: %s", diff)
	}
}
