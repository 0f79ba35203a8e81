package vm

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// SeedChain derives per-tick, per-rule, and per-activation seeds from one
// world seed by successive hashing, so identical inputs always reproduce
// the identical sequence (spec.md §4.7 "RNG").
type SeedChain struct {
	worldSeed uint64
}

func NewSeedChain(worldSeed uint64) SeedChain {
	return SeedChain{worldSeed: worldSeed}
}

func hashSeed(a uint64, b string) uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], a)
	h.Write(buf[:])
	h.WriteString(b)
	return h.Sum64()
}

func hashSeedInt(a uint64, b uint64) uint64 {
	h := xxhash.New()
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], a)
	binary.LittleEndian.PutUint64(buf[8:16], b)
	h.Write(buf[:])
	return h.Sum64()
}

// TickSeed derives hash(world_seed, tick).
func (c SeedChain) TickSeed(tick uint64) uint64 {
	return hashSeedInt(c.worldSeed, tick)
}

// RuleSeed derives hash(tick_seed, rule_name).
func RuleSeed(tickSeed uint64, ruleName string) uint64 {
	return hashSeed(tickSeed, ruleName)
}

// ActivationSeed derives hash(rule_seed, activation_index).
func ActivationSeed(ruleSeed uint64, activationIndex uint64) uint64 {
	return hashSeedInt(ruleSeed, activationIndex)
}

// Rand is a small splitmix64-based deterministic generator seeded from an
// ActivationSeed. It is intentionally minimal: the point of the seed chain
// is reproducibility, not statistical quality beyond what a simulation rule
// body needs (dice rolls, jitter, sampling).
type Rand struct {
	state uint64
}

func NewRand(seed uint64) *Rand {
	return &Rand{state: seed}
}

// Uint64 returns the next 64 bits and advances the generator.
func (r *Rand) Uint64() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// IntN returns a value in [0, n).
func (r *Rand) IntN(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return int64(r.Uint64() % uint64(n))
}
