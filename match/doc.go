// Package match implements the pattern matcher (C8): compiled clause
// plans, left-deep join execution over a store.World with archetype-
// indexed entry points, negation-safety checking at compile time, and
// deterministic emission order.
package match
