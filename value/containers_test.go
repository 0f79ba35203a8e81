package value

import "testing"

func TestVectorPersistence(t *testing.T) {
	v1 := VectorOf(Int(1), Int(2), Int(3))
	v2 := v1.Append(Int(4))
	v3 := v2.Set(0, Int(99))

	if v1.Len() != 3 {
		t.Fatalf("original vector mutated: len = %d, want 3", v1.Len())
	}
	if v2.Len() != 4 {
		t.Fatalf("Append() len = %d, want 4", v2.Len())
	}
	if !v1.Get(0).Equal(Int(1)) {
		t.Errorf("original vector element changed after Set() on derived vector")
	}
	if !v3.Get(0).Equal(Int(99)) {
		t.Errorf("Set() did not apply to derived vector")
	}
}

func TestSetPersistence(t *testing.T) {
	s1 := SetOf(Int(1), Int(2))
	s2 := s1.Insert(Int(3))
	s3 := s2.Remove(Int(1))

	if s1.Len() != 2 || s1.Has(Int(3)) {
		t.Fatalf("original set mutated by Insert()")
	}
	if !s2.Has(Int(3)) {
		t.Errorf("Insert() did not apply to derived set")
	}
	if s3.Has(Int(1)) {
		t.Errorf("Remove() did not remove element from derived set")
	}
	if !s2.Has(Int(1)) {
		t.Errorf("Remove() on derived set mutated ancestor")
	}
}

func TestMapPersistence(t *testing.T) {
	m1 := NewMap().Set(String("a"), Int(1))
	m2 := m1.Set(String("b"), Int(2))
	m3 := m2.Delete(String("a"))

	if m1.Len() != 1 {
		t.Fatalf("original map mutated by Set()")
	}
	if got, ok := m2.Get(String("a")); !ok || !got.Equal(Int(1)) {
		t.Errorf("derived map lost ancestor key: got %v, ok %v", got, ok)
	}
	if _, ok := m3.Get(String("a")); ok {
		t.Errorf("Delete() did not remove key from derived map")
	}
	if _, ok := m2.Get(String("a")); !ok {
		t.Errorf("Delete() on derived map mutated ancestor")
	}
}

func TestCloneIsCheap(t *testing.T) {
	v := VectorOf(Int(1), Int(2), Int(3))
	wrapped := FromVector(v)
	clone := wrapped // struct copy, no deep traversal
	if !clone.Equal(wrapped) {
		t.Errorf("clone of Value holding a Vector should compare equal")
	}
}
