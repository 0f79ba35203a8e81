package derived

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ndouglas/longtable/store"
	"github.com/ndouglas/longtable/value"
)

// cacheKey is (entity, derived name, generation). generation is bumped by
// the Evaluator every time it observes a new *World pointer, which is
// exactly every mutation (World is persistent: every mutating method
// returns a fresh *World) — so a stale generation can never hit, which is
// how the required "invalidate everything on any mutation" conservative
// policy (spec.md §4.10 "Invalidation") is implemented without walking the
// cache on every write.
type cacheKey struct {
	entity     value.EntityID
	name       value.Symbol
	generation uint64
}

// cache is a bounded LRU over computed derived values, so a long-running
// world doesn't grow the cache without limit under the conservative
// invalidate-on-every-mutation policy (spec.md §6 dependency table: "so
// long-running worlds don't grow an unbounded cache").
type cache struct {
	lru *lru.Cache[cacheKey, value.Value]
}

func newCache(size int) *cache {
	c, err := lru.New[cacheKey, value.Value](size)
	if err != nil {
		// Only returned by golang-lru for size <= 0, which callers never pass.
		panic(err)
	}
	return &cache{lru: c}
}

func (c *cache) get(entity value.EntityID, name value.Symbol, generation uint64) (value.Value, bool) {
	return c.lru.Get(cacheKey{entity, name, generation})
}

func (c *cache) put(entity value.EntityID, name value.Symbol, generation uint64, val value.Value) {
	c.lru.Add(cacheKey{entity, name, generation}, val)
}

// generationTracker tracks the most recently seen *World and a monotonic
// counter that advances whenever that pointer changes, giving every
// subsequent get-derived call a key no earlier entry could have been
// cached under.
type generationTracker struct {
	last       *store.World
	generation uint64
}

func (g *generationTracker) observe(w *store.World) uint64 {
	if w != g.last {
		g.last = w
		g.generation++
	}
	return g.generation
}
