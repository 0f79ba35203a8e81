// Package derived implements C10: lazily-evaluated, cached derived
// components and post-tick invariant constraints (spec.md §4.10).
package derived
