package vm

import "github.com/ndouglas/longtable/value"

func (m *VM) makeVector(n int) error {
	items := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := m.pop(OpMakeVector)
		if err != nil {
			return err
		}
		items[i] = v
	}
	m.push(value.FromVector(value.VectorOf(items...)))
	return nil
}

func (m *VM) makeSet(n int) error {
	items := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := m.pop(OpMakeSet)
		if err != nil {
			return err
		}
		items[i] = v
	}
	m.push(value.FromSet(value.SetOf(items...)))
	return nil
}

func (m *VM) makeMap(pairs int) error {
	mp := value.NewMap()
	type kv struct{ k, v value.Value }
	entries := make([]kv, pairs)
	for i := pairs - 1; i >= 0; i-- {
		val, err := m.pop(OpMakeMap)
		if err != nil {
			return err
		}
		key, err := m.pop(OpMakeMap)
		if err != nil {
			return err
		}
		entries[i] = kv{key, val}
	}
	for _, e := range entries {
		mp = mp.Set(e.k, e.v)
	}
	m.push(value.FromMap(mp))
	return nil
}
