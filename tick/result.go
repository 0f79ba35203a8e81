package tick

import (
	"time"

	"github.com/ndouglas/longtable/derived"
	"github.com/ndouglas/longtable/rule"
	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

// TickResult is the report returned alongside the new committed world on a
// successful tick (spec.md §4.11 step 5 "Commit").
type TickResult struct {
	Tick            uint64
	RulesFired      []rule.FireRecord
	EntitiesChanged []value.EntityID
	Log             *store.EffectLog
	Warnings        []derived.Violation
	Output          string
	Elapsed         time.Duration
}

// entitiesChanged returns every distinct entity the log recorded a mutation
// against, in first-touched order.
func entitiesChanged(log *store.EffectLog) []value.EntityID {
	seen := map[value.EntityID]bool{}
	var out []value.EntityID
	for _, rec := range log.Records() {
		if seen[rec.Entity] {
			continue
		}
		seen[rec.Entity] = true
		out = append(out, rec.Entity)
	}
	return out
}
