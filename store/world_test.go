package store

import (
	"errors"
	"testing"

	"github.com/ndouglas/longtable/value"
)

func newTestRegistry(t *testing.T) (*Registry, value.Symbol, *value.Interner) {
	t.Helper()
	interner := value.NewInterner()
	registry := NewRegistry(interner)
	hp := interner.InternSymbol("", "hp")
	if err := registry.RegisterComponent(ComponentSchema{Name: hp, ValueType: FieldInt}); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	return registry, hp, interner
}

func TestWorldSpawnSetIsPersistent(t *testing.T) {
	registry, hp, _ := newTestRegistry(t)
	w0 := NewWorld(registry, 1)

	w1, entity, err := w0.Spawn(map[value.Symbol]value.Value{hp: value.Int(10)})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if w0.Exists(entity) {
		t.Errorf("pre-spawn snapshot should not see the new entity")
	}
	if !w1.Exists(entity) {
		t.Errorf("post-spawn snapshot should see the new entity")
	}

	w2, err := w1.Set(entity, hp, value.Int(20))
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := w1.Get(entity, hp).Int(); got != 10 {
		t.Errorf("w1 (pre-mutation) hp changed to %d, want unchanged 10", got)
	}
	if got := w2.Get(entity, hp).Int(); got != 20 {
		t.Errorf("w2 (post-mutation) hp = %d, want 20", got)
	}
}

func TestWorldSetOnStaleEntityFails(t *testing.T) {
	registry, hp, _ := newTestRegistry(t)
	w0 := NewWorld(registry, 1)
	w1, entity, err := w0.Spawn(nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	w2, err := w1.Destroy(entity)
	if err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := w2.Set(entity, hp, value.Int(1)); err == nil {
		t.Errorf("expected an error setting a component on a destroyed entity")
	} else {
		var stale StaleEntityError
		if !errors.As(err, &stale) {
			t.Errorf("got %v, want StaleEntityError", err)
		}
	}
}

func TestWorldDestroyIsIdempotent(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	w0 := NewWorld(registry, 1)
	w1, entity, err := w0.Spawn(nil)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	w2, err := w1.Destroy(entity)
	if err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	w3, err := w2.Destroy(entity)
	if err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
	if w3.Exists(entity) {
		t.Errorf("destroyed entity should not exist")
	}
}

func TestWorldLinkCascadeDeletesRelationship(t *testing.T) {
	registry, _, interner := newTestRegistry(t)
	owns := interner.InternSymbol("", "owns")
	if err := registry.RegisterRelationship(RelationshipSchema{
		Name: owns, Cardinality: OneToMany, OnTargetDelete: DeleteCascade,
	}); err != nil {
		t.Fatalf("RegisterRelationship: %v", err)
	}

	w := NewWorld(registry, 1)
	w, parent, err := w.Spawn(nil)
	if err != nil {
		t.Fatalf("Spawn parent: %v", err)
	}
	w, child, err := w.Spawn(nil)
	if err != nil {
		t.Fatalf("Spawn child: %v", err)
	}
	w, relEntity, err := w.Link(owns, parent, child)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if !w.Exists(relEntity) {
		t.Fatalf("relationship entity should exist after Link")
	}

	w, err = w.Destroy(parent)
	if err != nil {
		t.Fatalf("Destroy parent: %v", err)
	}
	if w.Exists(relEntity) {
		t.Errorf("relationship entity should be gone after cascading delete")
	}
	if w.Exists(child) {
		t.Errorf("child should cascade-delete along with its owning relationship")
	}
}

func TestWorldForkChainsPrevious(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	w0 := NewWorld(registry, 1)
	w1 := w0.Fork(2)
	if w1.Tick != w0.Tick+1 {
		t.Errorf("got tick %d, want %d", w1.Tick, w0.Tick+1)
	}
	if w1.Previous != w0 {
		t.Errorf("forked world's Previous should point back at the receiver")
	}
}

func TestWorldTruncateHistoryDoesNotMutateSharedPredecessors(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	w0 := NewWorld(registry, 1)
	w1 := w0.Fork(2)
	w2 := w1.Fork(3)
	w3 := w2.Fork(4)

	truncated := w3.TruncateHistory(1)

	// The pre-existing, externally-held chain must be untouched.
	if w3.Previous != w2 || w2.Previous != w1 || w1.Previous != w0 {
		t.Fatalf("TruncateHistory mutated a pre-existing, externally-held World's Previous chain")
	}
	if truncated == w3 {
		t.Errorf("TruncateHistory should not return the receiver itself")
	}
	// retention 1 keeps one link back, but it must be a clone of w2 (same
	// data, Previous cut to nil), never the shared w2 node itself.
	if truncated.Previous == nil {
		t.Fatalf("truncated chain should still hold one link back (retention 1)")
	}
	if truncated.Previous == w2 {
		t.Errorf("truncated's retained link must be a clone, not the shared w2 node")
	}
	if truncated.Previous.Tick != w2.Tick || truncated.Previous.Seed != w2.Seed {
		t.Errorf("truncated's retained link should carry w2's data")
	}
	if truncated.Previous.Previous != nil {
		t.Errorf("truncated chain should be cut after one link back")
	}
}

func TestWorldContentHashStableAndSensitive(t *testing.T) {
	registry, hp, _ := newTestRegistry(t)
	w, entity, err := NewWorld(registry, 1).Spawn(map[value.Symbol]value.Value{hp: value.Int(5)})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	h1 := w.ContentHash()
	h2 := w.ContentHash()
	if h1 != h2 {
		t.Errorf("ContentHash is not stable across repeated calls on the same world")
	}
	w2, err := w.Set(entity, hp, value.Int(6))
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if w2.ContentHash() == h1 {
		t.Errorf("ContentHash did not change after a component mutation")
	}
}
