package value

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindKeyword
	KindEntity
	KindVector
	KindSet
	KindMap
	KindClosure
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindKeyword:
		return "keyword"
	case KindEntity:
		return "entity"
	case KindVector:
		return "vector"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindClosure:
		return "closure"
	default:
		return "unknown"
	}
}

// Value is Longtable's tagged union (spec.md §3). It is a plain struct, not
// an interface: primitives live inline, collections and closures hold a
// pointer into a persistent, structurally-shared backing store, so copying
// a Value is always a fixed, small, allocation-free operation regardless of
// what it holds.
type Value struct {
	kind   Kind
	bits   uint64
	str    string
	sym    Symbol
	entity EntityID
	vec    *Vector
	set    *Set
	mp     *Map
	fn     *Closure
}

// Nil is the canonical nil Value (the zero value of Value also satisfies this).
var Nil = Value{kind: KindNil}

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

func Int(i int64) Value {
	return Value{kind: KindInt, bits: uint64(i)}
}

func Float(f float64) Value {
	return Value{kind: KindFloat, bits: math.Float64bits(f)}
}

// String wraps a non-interned, reference-counted-by-the-GC immutable slice.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

func Sym(s Symbol) Value {
	return Value{kind: KindSymbol, sym: s}
}

func Keyword(s Symbol) Value {
	return Value{kind: KindKeyword, sym: s}
}

func Entity(e EntityID) Value {
	return Value{kind: KindEntity, entity: e}
}

func FromVector(v *Vector) Value {
	return Value{kind: KindVector, vec: v}
}

func FromSet(s *Set) Value {
	return Value{kind: KindSet, set: s}
}

func FromMap(m *Map) Value {
	return Value{kind: KindMap, mp: m}
}

func FromClosure(c *Closure) Value {
	return Value{kind: KindClosure, fn: c}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() bool { return v.kind == KindBool && v.bits != 0 }

func (v Value) Int() int64 { return int64(v.bits) }

func (v Value) Float() float64 { return math.Float64frombits(v.bits) }

func (v Value) Str() string { return v.str }

func (v Value) Symbol() Symbol { return v.sym }

func (v Value) Entity() EntityID { return v.entity }

func (v Value) Vector() *Vector { return v.vec }

func (v Value) Set() *Set { return v.set }

func (v Value) Map() *Map { return v.mp }

func (v Value) Closure() *Closure { return v.fn }

// Truthy implements the VM's single notion of "falsy": nil and the boolean
// false are falsy, everything else (including 0, 0.0, "", empty
// collections) is truthy. Used by conditional jump opcodes (vm package) and
// by guard/filter bytecode in rule pipelines.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.bits != 0
	default:
		return true
	}
}

// Equal implements spec.md §3's equality rules: reflexive except NaN,
// symmetric, transitive, structural for collections, identity for interned
// atoms. Different Kinds are never equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool, KindInt:
		return v.bits == other.bits
	case KindFloat:
		// Go's == on float64 already gives NaN != NaN and +0.0 == -0.0.
		return v.Float() == other.Float()
	case KindString:
		return v.str == other.str
	case KindSymbol, KindKeyword:
		return v.sym == other.sym
	case KindEntity:
		return v.entity == other.entity
	case KindVector:
		return v.vec.Equal(other.vec)
	case KindSet:
		return v.set.Equal(other.set)
	case KindMap:
		return v.mp.Equal(other.mp)
	case KindClosure:
		return v.fn == other.fn
	default:
		return false
	}
}

// canonicalNaNHash and canonicalZeroHash ensure every NaN bit pattern hashes
// identically, and +0.0/-0.0 (which differ in their sign bit) hash
// identically, matching the Equal rules above.
const (
	canonicalNaNHash  uint64 = 0x6e616e5f68617368 // "nan_hash"
	canonicalZeroHash uint64 = 0x7a65726f5f686173 // "zero_has"
)

// Hash returns a hash consistent with Equal: a.Equal(b) implies
// a.Hash() == b.Hash(). Collection hashes are cached on the collection root
// (see Vector/Set/Map) so repeated hashing of a shared structure is O(1)
// after the first call.
func (v Value) Hash() uint64 {
	h := xxhash.New()
	var kindBuf [1]byte
	kindBuf[0] = byte(v.kind)
	h.Write(kindBuf[:])
	switch v.kind {
	case KindNil:
		// kind tag alone is enough
	case KindBool, KindInt:
		writeUint64(h, v.bits)
	case KindFloat:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			return mixHash(byte(v.kind), canonicalNaNHash)
		case f == 0:
			return mixHash(byte(v.kind), canonicalZeroHash)
		default:
			writeUint64(h, v.bits)
		}
	case KindString:
		h.WriteString(v.str)
	case KindSymbol, KindKeyword:
		writeUint64(h, uint64(v.sym.NS))
		writeUint64(h, uint64(v.sym.Name))
	case KindEntity:
		writeUint64(h, uint64(v.entity.Index))
		writeUint64(h, uint64(v.entity.Generation))
	case KindVector:
		return mixHash(byte(v.kind), v.vec.Hash())
	case KindSet:
		return mixHash(byte(v.kind), v.set.Hash())
	case KindMap:
		return mixHash(byte(v.kind), v.mp.Hash())
	case KindClosure:
		writeUint64(h, uint64(uintptr(unsafe.Pointer(v.fn))))
	}
	return h.Sum64()
}

func mixHash(kind byte, inner uint64) uint64 {
	h := xxhash.New()
	h.Write([]byte{kind})
	writeUint64(h, inner)
	return h.Sum64()
}

func writeUint64(h *xxhash.Digest, u uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	h.Write(buf[:])
}

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return fmt.Sprintf("%v", v.Bool())
	case KindInt:
		return fmt.Sprintf("%d", v.Int())
	case KindFloat:
		return fmt.Sprintf("%g", v.Float())
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindSymbol:
		return fmt.Sprintf("sym(%d/%d)", v.sym.NS, v.sym.Name)
	case KindKeyword:
		return fmt.Sprintf(":kw(%d/%d)", v.sym.NS, v.sym.Name)
	case KindEntity:
		return v.entity.String()
	case KindVector:
		return fmt.Sprintf("vector[%d]", v.vec.Len())
	case KindSet:
		return fmt.Sprintf("set[%d]", v.set.Len())
	case KindMap:
		return fmt.Sprintf("map[%d]", v.mp.Len())
	case KindClosure:
		return fmt.Sprintf("closure@%d", v.fn.Address)
	default:
		return "<?>"
	}
}
