// Package rangeset maintains the set of target block ids already known
// (written) by a job, as a sorted, disjoint, non-adjacent list of
// inclusive intervals.
package rangeset

// Set is a sorted array of disjoint, non-adjacent, inclusive block-id
// intervals. The zero value is an empty set.
type Set struct {
	// bounds holds 2*n entries: bounds[2*i], bounds[2*i+1] is the i-th
	// interval's [lo, hi].
	bounds []int64
}

// Len returns the number of intervals currently stored.
func (s *Set) Len() int {
	return len(s.bounds) / 2
}

// Bounds returns the i-th interval's inclusive [lo, hi] bounds.
func (s *Set) Bounds(i int) (lo, hi int64) {
	return s.bounds[2*i], s.bounds[2*i+1]
}

// before returns -1 if x lies inside a stored interval, otherwise the
// 0-based index of the interval immediately following x, by bisection
// over the interval array.
func (s *Set) before(x int64) int {
	min, max := 0, s.Len()-1
	for min <= max {
		r := (max + min) / 2
		lo, hi := s.Bounds(r)
		switch {
		case x > hi:
			min = r + 1
		case x < lo:
			max = r - 1
		default:
			return -1
		}
	}
	return min
}

// Add marks block id x as known, merging with adjacent intervals as
// needed. It is a no-op if x is already known.
func (s *Set) Add(x int64) {
	r := s.before(x)
	if r == -1 {
		return
	}

	n := s.Len()

	mergesBelow := r > 0 && s.bounds[2*(r-1)+1] == x-1
	mergesAbove := r < n && s.bounds[2*r] == x+1

	switch {
	case mergesBelow && mergesAbove:
		// Fills the gap between two known ranges: merge them into one
		// and drop the (now redundant) tail range.
		s.bounds[2*(r-1)+1] = s.bounds[2*r+1]
		s.bounds = append(s.bounds[:2*r], s.bounds[2*r+2:]...)
	case mergesBelow:
		s.bounds[2*(r-1)+1] = x
	case mergesAbove:
		s.bounds[2*r] = x
	default:
		// New single-point interval [x, x] inserted at position r.
		s.bounds = append(s.bounds, 0, 0)
		copy(s.bounds[2*r+2:], s.bounds[2*r:len(s.bounds)-2])
		s.bounds[2*r] = x
		s.bounds[2*r+1] = x
	}
}

// AlreadyGot reports whether block id x is already known.
func (s *Set) AlreadyGot(x int64) bool {
	return s.before(x) == -1
}

// NextKnown returns x if x is already known, otherwise the lowest
// known block id greater than x, or blocks (the block past the end of
// the target) if no later block is known.
func (s *Set) NextKnown(x int64, blocks int64) int64 {
	r := s.before(x)
	if r == -1 {
		return x
	}
	if r == s.Len() {
		return blocks
	}
	lo, _ := s.Bounds(r)
	return lo
}
