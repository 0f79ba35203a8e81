package vm

import (
	"fmt"

	"github.com/ndouglas/longtable/value"
)

// TypeError is raised when an opcode's operand Values don't match the
// operation's expected kinds (spec.md §4.7).
type TypeError struct {
	Op       Op
	Expected string
	Got      value.Kind
}

func (e TypeError) Error() string {
	return fmt.Sprintf("type error in %s: expected %s, got %s", e.Op, e.Expected, e.Got)
}

// StackUnderflowError is raised when an opcode pops more values than the
// stack holds — always a compiler bug, never a user-facing condition.
type StackUnderflowError struct {
	Op Op
}

func (e StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow executing %s", e.Op)
}

// NativeCallError wraps an error returned by a native function's impl.
type NativeCallError struct {
	Name string
	Err  error
}

func (e NativeCallError) Error() string {
	return fmt.Sprintf("native %s: %v", e.Name, e.Err)
}

// PurityViolationError is raised when an effectful or nondeterministic
// native is called from a context that only permits pure+deterministic
// natives (spec.md §4.7: "only callable from rule :then bodies").
type PurityViolationError struct {
	Name string
}

func (e PurityViolationError) Error() string {
	return fmt.Sprintf("native %s is effectful or nondeterministic and cannot be called here", e.Name)
}

// ArityError is raised when a native or closure call supplies the wrong
// number of arguments.
type ArityError struct {
	Name     string
	Got      int
	Expected string
}

func (e ArityError) Error() string {
	return fmt.Sprintf("%s expected %s arguments, got %d", e.Name, e.Expected, e.Got)
}

// NaNError is raised mid-execution when Context.FailOnNaN is set and an
// arithmetic op would produce NaN (spec.md §6 "fail_on_nan flag").
type NaNError struct {
	Op Op
}

func (e NaNError) Error() string {
	return fmt.Sprintf("%s produced NaN", e.Op)
}
