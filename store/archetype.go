package store

import (
	"fmt"
	"sort"

	"github.com/TheBitDrifter/mask"
	"github.com/cespare/xxhash/v2"
	"github.com/ndouglas/longtable/value"
)

// archetypeID identifies an archetype shape. Ids are assigned densely,
// starting at 1, in first-seen order — content, not declaration order,
// decides which shape an entity ends up in (spec.md §3: "Archetype identity
// is by content, not declaration order").
type archetypeID uint32

// archetypeShape is the *sorted* set of component keywords present on an
// entity, plus the mask signature used for fast archetype-vs-query tests
// (teacher's mask.Mask usage in query.go, generalized to World scope).
type archetypeShape struct {
	id         archetypeID
	components []value.Symbol
	key        mask.Mask
}

// maskHasher adapts mask.Mask (a comparable value type, per the teacher's
// use of it as a plain Go map key) to immutable.Hasher.
type maskHasher struct{}

func (maskHasher) Hash(m mask.Mask) uint32 {
	return uint32(xxhash.Sum64String(fmt.Sprintf("%v", m)))
}

func (maskHasher) Equal(a, b mask.Mask) bool { return a == b }

// archetypeIDHasher lets archetypeID key an immutable.Map.
type archetypeIDHasher struct{}

func (archetypeIDHasher) Hash(id archetypeID) uint32 { return uint32(id) }
func (archetypeIDHasher) Equal(a, b archetypeID) bool { return a == b }

func maskFor(registry *Registry, components []value.Symbol) (mask.Mask, error) {
	var m mask.Mask
	for _, c := range components {
		bit, ok := registry.BitFor(c)
		if !ok {
			return m, fmt.Errorf("component not registered: %v", c)
		}
		m.Mark(bit)
	}
	return m, nil
}

func sortedCopy(components []value.Symbol) []value.Symbol {
	out := append([]value.Symbol(nil), components...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].NS != out[j].NS {
			return out[i].NS < out[j].NS
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ArchetypeData is the dense, column-per-component row storage for one
// archetype shape, entirely built on value.Vector so clone, append, and
// swap-remove are all O(log n) with structural sharing (spec.md §4.4).
type ArchetypeData struct {
	entities *value.Vector // Value(Entity(id)) per row
	columns  map[value.Symbol]*value.Vector
}

func newArchetypeData(components []value.Symbol) *ArchetypeData {
	cols := make(map[value.Symbol]*value.Vector, len(components))
	for _, c := range components {
		cols[c] = value.NewVector()
	}
	return &ArchetypeData{entities: value.NewVector(), columns: cols}
}

// Len is the number of occupied rows.
func (d *ArchetypeData) Len() int { return d.entities.Len() }

func (d *ArchetypeData) EntityAt(row int) value.EntityID {
	return d.entities.Get(row).Entity()
}

func (d *ArchetypeData) Get(row int, component value.Symbol) value.Value {
	col, ok := d.columns[component]
	if !ok {
		return value.Nil
	}
	return col.Get(row)
}

// cloneShallow copies the column map header (O(#components)), not the
// columns themselves (each is a shared persistent Vector root).
func (d *ArchetypeData) cloneShallow() *ArchetypeData {
	cols := make(map[value.Symbol]*value.Vector, len(d.columns))
	for k, v := range d.columns {
		cols[k] = v
	}
	return &ArchetypeData{entities: d.entities, columns: cols}
}

// Set returns a new ArchetypeData with the cell at (row, component) replaced.
func (d *ArchetypeData) Set(row int, component value.Symbol, val value.Value) *ArchetypeData {
	nd := d.cloneShallow()
	nd.columns[component] = nd.columns[component].Set(row, val)
	return nd
}

// AppendRow returns a new ArchetypeData with one more row for entity,
// populated from values (missing components default to Nil).
func (d *ArchetypeData) AppendRow(entity value.EntityID, values map[value.Symbol]value.Value) *ArchetypeData {
	nd := d.cloneShallow()
	nd.entities = nd.entities.Append(value.Entity(entity))
	for c, col := range nd.columns {
		v, ok := values[c]
		if !ok {
			v = value.Nil
		}
		nd.columns[c] = col.Append(v)
	}
	return nd
}

// RemoveRow swap-removes the row at index row: the last row's values
// replace it, and the vectors shrink by one. It returns the entity that
// used to own the last row (so the caller can repoint that entity's
// location), and whether a move actually happened (false when row was
// already last).
func (d *ArchetypeData) RemoveRow(row int) (nd *ArchetypeData, movedEntity value.EntityID, moved bool) {
	last := d.Len() - 1
	nd = d.cloneShallow()
	if row != last {
		movedEntity = d.EntityAt(last)
		moved = true
		nd.entities = nd.entities.Set(row, nd.entities.Get(last))
		for c, col := range nd.columns {
			nd.columns[c] = col.Set(row, col.Get(last))
		}
	}
	nd.entities = nd.entities.Pop()
	for c, col := range nd.columns {
		nd.columns[c] = col.Pop()
	}
	return nd, movedEntity, moved
}

// Snapshot returns every (row, value) pair for component in row order,
// used by the pattern matcher to iterate a column without re-deriving row
// count each call.
func (d *ArchetypeData) Snapshot(component value.Symbol) []value.Value {
	col, ok := d.columns[component]
	if !ok {
		return nil
	}
	return col.Slice()
}
