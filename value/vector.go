package value

import "github.com/benbjohnson/immutable"

// Vector is the persistent ordered sequence container (C2): index access,
// append, update-at, and iteration in index order, each an O(log n)
// operation that returns a new Vector sharing all unchanged structure with
// the original.
type Vector struct {
	list *immutable.List[Value]
	hash *uint64 // lazily computed, cached on the root per spec.md §3/§4.1
}

// NewVector returns the empty vector.
func NewVector() *Vector {
	return &Vector{list: immutable.NewList[Value]()}
}

// VectorOf builds a Vector from a slice in one pass.
func VectorOf(items ...Value) *Vector {
	b := immutable.NewListBuilder[Value]()
	for _, v := range items {
		b.Append(v)
	}
	return &Vector{list: b.List()}
}

// Len is cached by the underlying list; O(1).
func (v *Vector) Len() int {
	if v == nil || v.list == nil {
		return 0
	}
	return v.list.Len()
}

// Get returns the element at index, panicking if out of range; the panic
// is not converted into an error value.
func (v *Vector) Get(index int) Value {
	return v.list.Get(index)
}

// Append returns a new Vector with value appended.
func (v *Vector) Append(val Value) *Vector {
	return &Vector{list: v.list.Append(val)}
}

// Set returns a new Vector with the element at index replaced.
func (v *Vector) Set(index int, val Value) *Vector {
	return &Vector{list: v.list.Set(index, val)}
}

// Pop returns a new Vector with the last element removed. Used by the
// component store's swap-remove archetype migration.
func (v *Vector) Pop() *Vector {
	return &Vector{list: v.list.Slice(0, v.list.Len()-1)}
}

// Each calls fn for every element in index order, stopping early if fn
// returns false.
func (v *Vector) Each(fn func(index int, val Value) bool) {
	if v == nil || v.list == nil {
		return
	}
	itr := v.list.Iterator()
	for !itr.Done() {
		i, val := itr.Next()
		if !fn(i, val) {
			return
		}
	}
}

// Slice materializes the vector into a plain Go slice. Used at the edges
// (native function ABI, debugging) where persistent structure no longer
// matters.
func (v *Vector) Slice() []Value {
	out := make([]Value, 0, v.Len())
	v.Each(func(_ int, val Value) bool {
		out = append(out, val)
		return true
	})
	return out
}

// Equal is structural: same length, equal elements in the same order.
func (v *Vector) Equal(other *Vector) bool {
	if v == other {
		return true
	}
	if v == nil || other == nil {
		return v.Len() == 0 && other.Len() == 0
	}
	if v.Len() != other.Len() {
		return false
	}
	oItr := other.list.Iterator()
	equal := true
	v.Each(func(_ int, val Value) bool {
		_, oVal := oItr.Next()
		if !val.Equal(oVal) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// Hash composes element hashes; the result is cached on the root so a
// Vector embedded in many derived values only pays the traversal cost once.
func (v *Vector) Hash() uint64 {
	if v == nil {
		return 0
	}
	if v.hash != nil {
		return *v.hash
	}
	acc := uint64(1469598103934665603) // FNV offset basis, arbitrary seed
	v.Each(func(_ int, val Value) bool {
		acc = acc*1099511628211 ^ val.Hash()
		return true
	})
	v.hash = &acc
	return acc
}
