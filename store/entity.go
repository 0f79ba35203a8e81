package store

import (
	"github.com/TheBitDrifter/bark"
	"github.com/benbjohnson/immutable"
	"github.com/ndouglas/longtable/value"
)

type entitySlot struct {
	generation uint32
	alive      bool
}

// EntityStore is the persistent generational-index allocator (C3): a
// vector of {generation, alive} slots plus a LIFO free list of reusable
// indices, exactly the shape spec.md §4.3 describes, made persistent by
// backing both with immutable.List instead of a plain Go slice.
type EntityStore struct {
	slots    *immutable.List[entitySlot]
	freeList *immutable.List[uint32]
}

// NewEntityStore returns an empty EntityStore.
func NewEntityStore() EntityStore {
	return EntityStore{
		slots:    immutable.NewList[entitySlot](),
		freeList: immutable.NewList[uint32](),
	}
}

// Spawn allocates a new live EntityID, reusing the most recently freed
// index (LIFO) if one is available, per spec.md §4.3.
func (s EntityStore) Spawn() (EntityStore, value.EntityID) {
	if s.freeList.Len() > 0 {
		idx := s.freeList.Get(s.freeList.Len() - 1)
		newFree := s.freeList.Slice(0, s.freeList.Len()-1)
		slot := s.slots.Get(int(idx))
		slot.alive = true
		newSlots := s.slots.Set(int(idx), slot)
		return EntityStore{slots: newSlots, freeList: newFree}, value.EntityID{Index: idx, Generation: slot.generation}
	}
	idx := uint32(s.slots.Len())
	newSlots := s.slots.Append(entitySlot{generation: 0, alive: true})
	return EntityStore{slots: newSlots, freeList: s.freeList}, value.EntityID{Index: idx, Generation: 0}
}

// Validate fails with StaleEntityError if id's index is out of range or its
// generation doesn't match the slot's current generation (spec.md §3).
func (s EntityStore) Validate(id value.EntityID) error {
	if int(id.Index) >= s.slots.Len() {
		return bark.AddTrace(StaleEntityError{Entity: id})
	}
	slot := s.slots.Get(int(id.Index))
	if !slot.alive || slot.generation != id.Generation {
		return bark.AddTrace(StaleEntityError{Entity: id})
	}
	return nil
}

// Exists is the non-fatal counterpart of Validate.
func (s EntityStore) Exists(id value.EntityID) bool {
	return s.Validate(id) == nil
}

// Destroy marks id dead and bumps its slot's generation so any other
// reference sharing the index fails Validate from here on.
func (s EntityStore) Destroy(id value.EntityID) (EntityStore, error) {
	if err := s.Validate(id); err != nil {
		return s, err
	}
	slot := s.slots.Get(int(id.Index))
	slot.alive = false
	slot.generation++
	newSlots := s.slots.Set(int(id.Index), slot)
	newFree := s.freeList.Append(id.Index)
	return EntityStore{slots: newSlots, freeList: newFree}, nil
}

// Each iterates live ids in ascending index order (spec.md §4.3: "Iteration
// yields live ids only").
func (s EntityStore) Each(fn func(value.EntityID) bool) {
	itr := s.slots.Iterator()
	idx := 0
	for !itr.Done() {
		_, slot := itr.Next()
		if slot.alive {
			if !fn(value.EntityID{Index: uint32(idx), Generation: slot.generation}) {
				return
			}
		}
		idx++
	}
}

// Len returns the number of slots ever allocated (live + dead).
func (s EntityStore) Len() int {
	return s.slots.Len()
}
