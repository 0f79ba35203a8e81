package value

import "github.com/benbjohnson/immutable"

// Map is the persistent Value->Value mapping (C2): get, insert, remove, and
// iteration in unspecified order. Keys are unique under Value.Equal.
type Map struct {
	m    *immutable.Map[Value, Value]
	hash *uint64
}

func NewMap() *Map {
	return &Map{m: immutable.NewMap[Value, Value](valueHasher{})}
}

func (m *Map) Len() int {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Len()
}

func (m *Map) Get(key Value) (Value, bool) {
	if m == nil || m.m == nil {
		return Nil, false
	}
	return m.m.Get(key)
}

func (m *Map) Set(key, val Value) *Map {
	return &Map{m: m.m.Set(key, val)}
}

func (m *Map) Delete(key Value) *Map {
	return &Map{m: m.m.Delete(key)}
}

func (m *Map) Each(fn func(key, val Value) bool) {
	if m == nil || m.m == nil {
		return
	}
	itr := m.m.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		if !fn(k, v) {
			return
		}
	}
}

func (m *Map) Equal(other *Map) bool {
	if m == other {
		return true
	}
	if m.Len() != other.Len() {
		return false
	}
	equal := true
	m.Each(func(k, v Value) bool {
		ov, ok := other.Get(k)
		if !ok || !v.Equal(ov) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// Hash composes key/value pair hashes order-independently, cached on the
// root.
func (m *Map) Hash() uint64 {
	if m == nil {
		return 0
	}
	if m.hash != nil {
		return *m.hash
	}
	var acc uint64
	m.Each(func(k, v Value) bool {
		acc ^= (k.Hash()*1099511628211 + 1) ^ v.Hash()
		return true
	})
	m.hash = &acc
	return acc
}
