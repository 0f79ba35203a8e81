package tick

import (
	"github.com/ndouglas/longtable/derived"
	"github.com/ndouglas/longtable/rule"
)

// Config is the tick executor's behavior knobs (spec.md §6 "Determinism
// knobs", kill-switch defaults).
type Config struct {
	// Limits carries the rule engine's kill switches, including FailOnNaN
	// (spec.md §6 "fail_on_nan flag").
	Limits rule.Limits

	// HistoryRetention bounds how many committed snapshots back the
	// Previous chain is kept; negative means retain-all (spec.md §4.6, §9
	// Open Question 3: "default is retain-all but allow the host to
	// prune").
	HistoryRetention int

	// DerivedMaxDepth is the recursion ceiling handed to the derived
	// Evaluator (spec.md §6 "max derived evaluation depth = 100").
	DerivedMaxDepth int
}

// DefaultConfig returns the spec.md §6 kill-switch defaults, retain-all
// history, and fail_on_nan off.
func DefaultConfig() Config {
	return Config{
		Limits:           rule.DefaultLimits(),
		HistoryRetention: -1,
		DerivedMaxDepth:  derived.DefaultMaxDepth,
	}
}
