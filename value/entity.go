package value

import "fmt"

// EntityID is the opaque (index, generation) pair identifying an entity
// (spec.md §3). Indices are reused after destruction; the generation is
// bumped on reuse so a stale reference fails liveness checks instead of
// silently addressing a different entity.
type EntityID struct {
	Index      uint32
	Generation uint32
}

// NilEntity is never a live id in any World; it is the zero value and is
// used as the "absent" reference for optional relationship endpoints
// (nullify policy, spec.md §4.5).
var NilEntity = EntityID{}

// IsNil reports whether e is the absent-entity sentinel.
func (e EntityID) IsNil() bool {
	return e == NilEntity
}

func (e EntityID) String() string {
	return fmt.Sprintf("#%d.%d", e.Index, e.Generation)
}
