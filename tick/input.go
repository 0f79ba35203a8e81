package tick

import "github.com/ndouglas/longtable/value"

// Input is one externally-supplied event injected at the start of a tick,
// applied as a spawn of an input entity (spec.md §4.11 step 2 "Input
// injection"). The spawned entity's components are exactly Values.
type Input struct {
	Values map[value.Symbol]value.Value
}
