package match

import "fmt"

// NegationSafetyError is a compile-time failure: a negation group
// references a variable not bound by a preceding positive clause (spec.md
// §4.8 "negation safety rule").
type NegationSafetyError struct {
	Var Var
}

func (e NegationSafetyError) Error() string {
	return fmt.Sprintf("negation safety: variable %v is not bound by a preceding clause", e.Var)
}

// QueryResultSizeError is raised when a plan's emitted binding-set count
// would exceed the configured kill switch (spec.md §6).
type QueryResultSizeError struct {
	Limit int
}

func (e QueryResultSizeError) Error() string {
	return fmt.Sprintf("query result size exceeded limit of %d", e.Limit)
}
