// Package sparse provides a growable sparse set of integer handles.
//
// A sparse set supports O(1) insertion, deletion, membership testing and
// clearing while keeping a dense list of its members. The scanner uses it to
// track which slots of its active-match slab are live, so a match can be
// retired by handle without searching or comparing match values.
package sparse

import "math"

// Set is a set of uint32 handles. The sparse array maps a handle to its
// index in the dense array; a handle is a member only when both agree.
type Set struct {
	sparse []uint32
	dense  []uint32
}

// NewSet creates a set able to hold handles below capacity without growing.
func NewSet(capacity int) *Set {
	return &Set{
		sparse: make([]uint32, capacity),
		dense:  make([]uint32, 0, capacity),
	}
}

// Cap returns the exclusive upper bound of storable handles before Grow.
func (s *Set) Cap() int {
	return len(s.sparse)
}

// Grow extends the set so handles below capacity can be inserted.
func (s *Set) Grow(capacity int) {
	if capacity <= len(s.sparse) {
		return
	}
	if uint(capacity) > math.MaxUint32 {
		panic("sparse: capacity out of uint32 range")
	}
	sparse := make([]uint32, capacity)
	copy(sparse, s.sparse)
	s.sparse = sparse
}

// Insert adds h, growing the set when needed.
// Returns false if h was already present.
func (s *Set) Insert(h uint32) bool {
	if s.Contains(h) {
		return false
	}
	if int(h) >= len(s.sparse) {
		s.Grow(max(int(h)+1, 2*len(s.sparse)))
	}
	s.sparse[h] = uint32(len(s.dense))
	s.dense = append(s.dense, h)
	return true
}

// Contains reports whether h is in the set.
func (s *Set) Contains(h uint32) bool {
	if int(h) >= len(s.sparse) {
		return false
	}
	i := s.sparse[h]
	return int(i) < len(s.dense) && s.dense[i] == h
}

// Remove deletes h. Removing an absent handle is a no-op.
// The last dense member takes h's slot, so dense order is not stable.
func (s *Set) Remove(h uint32) {
	if !s.Contains(h) {
		return
	}
	i := s.sparse[h]
	last := s.dense[len(s.dense)-1]
	s.dense[i] = last
	s.sparse[last] = i
	s.dense = s.dense[:len(s.dense)-1]
}

// Clear removes every handle in O(1).
func (s *Set) Clear() {
	s.dense = s.dense[:0]
}

// Len returns the number of handles in the set.
func (s *Set) Len() int {
	return len(s.dense)
}

// IsEmpty reports whether the set has no handles.
func (s *Set) IsEmpty() bool {
	return len(s.dense) == 0
}
