// Package tick implements C11: the tick executor that drives one world
// snapshot to the next through input injection, the rule loop, the
// constraint phase, and commit/rollback (spec.md §4.11).
package tick
