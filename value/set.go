package value

import "github.com/benbjohnson/immutable"

// Set is the persistent unordered-unique container (C2): membership,
// insert, remove, and iteration in an order that is deterministic for a
// given content but otherwise unspecified to callers (spec.md §9 Open
// Question 1).
type Set struct {
	m    *immutable.Map[Value, struct{}]
	hash *uint64
}

// NewSet returns the empty set.
func NewSet() *Set {
	return &Set{m: immutable.NewMap[Value, struct{}](valueHasher{})}
}

// SetOf builds a Set from a slice of Values, deduplicating as it goes.
func SetOf(items ...Value) *Set {
	s := NewSet()
	for _, v := range items {
		s = s.Insert(v)
	}
	return s
}

func (s *Set) Len() int {
	if s == nil || s.m == nil {
		return 0
	}
	return s.m.Len()
}

func (s *Set) Has(v Value) bool {
	if s == nil || s.m == nil {
		return false
	}
	_, ok := s.m.Get(v)
	return ok
}

func (s *Set) Insert(v Value) *Set {
	return &Set{m: s.m.Set(v, struct{}{})}
}

func (s *Set) Remove(v Value) *Set {
	return &Set{m: s.m.Delete(v)}
}

// Each iterates in the underlying map's deterministic-but-unspecified order.
func (s *Set) Each(fn func(Value) bool) {
	if s == nil || s.m == nil {
		return
	}
	itr := s.m.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		if !fn(k) {
			return
		}
	}
}

func (s *Set) Slice() []Value {
	out := make([]Value, 0, s.Len())
	s.Each(func(v Value) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Equal is structural: same membership regardless of iteration order.
func (s *Set) Equal(other *Set) bool {
	if s == other {
		return true
	}
	if s.Len() != other.Len() {
		return false
	}
	equal := true
	s.Each(func(v Value) bool {
		if !other.Has(v) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// Hash is order-independent (a XOR-combine of element hashes), cached on
// the root, and consistent with Equal.
func (s *Set) Hash() uint64 {
	if s == nil {
		return 0
	}
	if s.hash != nil {
		return *s.hash
	}
	var acc uint64
	s.Each(func(v Value) bool {
		acc ^= v.Hash()
		return true
	})
	s.hash = &acc
	return acc
}
