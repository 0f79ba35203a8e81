/*
Package store implements the persistent world store: the entity store (C3),
the archetype-indexed component store (C4), the reified-entity relationship
store (C5), and the World snapshot that composes them (C6).

Every mutator here follows one rule, carried over from the teacher's
Storage/Entity split but generalized from "the one live mutable storage" to
"a value": it takes a World (or a sub-store) and returns a new one. Nothing
is ever mutated in place. Structural sharing comes from
github.com/benbjohnson/immutable's persistent B-trees, the same container
family package value builds its Vector/Set/Map on, so an archetype column
clone and a World clone are both O(1) — only root pointers move.
*/
package store
