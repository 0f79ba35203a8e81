package derived

import "fmt"

// InfiniteLoopError is raised when the guard stack detects a runtime cycle:
// the same (entity, derived-name) pair appearing twice while evaluating a
// derived value (spec.md §4.10 "guard stack").
type InfiniteLoopError struct {
	Name  string
	Depth int
}

func (e InfiniteLoopError) Error() string {
	return fmt.Sprintf("infinite loop evaluating derived %q (depth %d)", e.Name, e.Depth)
}

// MaxDepthError is raised when evaluation recursion exceeds the configured
// maximum derived evaluation depth (spec.md §6 "max derived evaluation
// depth = 100").
type MaxDepthError struct {
	Name  string
	Limit int
}

func (e MaxDepthError) Error() string {
	return fmt.Sprintf("derived %q exceeded max evaluation depth %d", e.Name, e.Limit)
}

// NotFoundError is raised when get-derived names a definition the Evaluator
// was not constructed with.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("unknown derived component %q", e.Name)
}

