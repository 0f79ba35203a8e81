package tick

import (
	"fmt"
	"strings"

	"github.com/ndouglas/longtable/derived"
)

// RollbackError is returned when a tick fails and its mutations were
// discarded: the world returned to the caller is the pre-tick world
// (spec.md §4.11 "Any uncaught runtime error... aborts by restoring
// pre_tick", §9 "User-visible behavior on rollback").
type RollbackError struct {
	Tick       uint64
	Cause      error
	Violations []derived.Violation
}

func (e RollbackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tick %d rolled back: %v", e.Tick, e.Cause)
	}
	names := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		names[i] = v.Constraint
	}
	return fmt.Sprintf("tick %d rolled back: constraint violation(s): %s", e.Tick, strings.Join(names, ", "))
}

func (e RollbackError) Unwrap() error { return e.Cause }
