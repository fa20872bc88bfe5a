package sparse

import (
	"testing"
)

func TestSet_Basic(t *testing.T) {
	s := NewSet(8)

	if !s.IsEmpty() {
		t.Error("new set should be empty")
	}
	if s.Contains(0) {
		t.Error("empty set should not contain 0")
	}

	if !s.Insert(5) {
		t.Error("first insert should return true")
	}
	if !s.Contains(5) {
		t.Error("set should contain 5 after insert")
	}
	if s.Insert(5) {
		t.Error("duplicate insert should return false")
	}
	if s.Len() != 1 {
		t.Errorf("len should be 1, got %d", s.Len())
	}

	s.Insert(1)
	s.Insert(3)
	s.Clear()
	if !s.IsEmpty() {
		t.Error("set should be empty after clear")
	}
	if s.Contains(5) {
		t.Error("cleared set should not contain 5")
	}
}

func TestSet_Remove(t *testing.T) {
	s := NewSet(8)
	for _, h := range []uint32{4, 1, 7, 2} {
		s.Insert(h)
	}

	s.Remove(1)
	s.Remove(6) // absent

	if s.Contains(1) {
		t.Error("1 still present after remove")
	}
	for _, h := range []uint32{4, 7, 2} {
		if !s.Contains(h) {
			t.Errorf("%d lost after removing 1", h)
		}
	}
	if s.Len() != 3 {
		t.Errorf("len should be 3, got %d", s.Len())
	}
}

func TestSet_Grow(t *testing.T) {
	s := NewSet(0)
	if s.Contains(100) {
		t.Error("zero-capacity set reports membership")
	}
	for h := uint32(0); h < 50; h += 7 {
		s.Insert(h)
	}
	if s.Cap() < 50 {
		t.Errorf("capacity did not grow: %d", s.Cap())
	}
	for h := uint32(0); h < 50; h++ {
		want := h%7 == 0
		if s.Contains(h) != want {
			t.Errorf("Contains(%d) = %v, want %v", h, !want, want)
		}
	}
}

// TestSet_StaleSparseEntry verifies a stale sparse slot does not fake membership
func TestSet_StaleSparseEntry(t *testing.T) {
	s := NewSet(4)
	s.Insert(2)
	s.Insert(3)
	s.Remove(2)
	s.Insert(1)
	if s.Contains(2) {
		t.Error("removed handle reported present after slot reuse")
	}
	if !s.Contains(1) || !s.Contains(3) {
		t.Error("members lost")
	}
}
