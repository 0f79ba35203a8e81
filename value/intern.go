package value

import "sync"

// Handle is a dense, monotonically assigned surrogate for an interned
// string. Handles are comparable in O(1) and never change meaning once
// assigned.
type Handle uint32

// NoHandle is the zero Handle, used as the "no namespace" marker on a Symbol.
const NoHandle Handle = 0

// Symbol is an interned name, optionally namespaced, e.g. `rel/type` is
// Symbol{NS: intern("rel"), Name: intern("type")}.
type Symbol struct {
	NS   Handle
	Name Handle
}

// Interner is the process-wide, append-only string<->Handle table. It is the
// one piece of shared mutable state the runtime keeps outside of a World
// (spec.md §5): handles never change meaning once assigned, so sharing it
// across worlds and speculative forks is always safe.
type Interner struct {
	mu      sync.RWMutex
	byText  map[string]Handle
	byIndex []string
}

// NewInterner returns an empty Interner. Handle 0 is reserved (NoHandle) so
// the zero value of Handle can mean "absent" without colliding with a real
// intern.
func NewInterner() *Interner {
	return &Interner{
		byText:  make(map[string]Handle),
		byIndex: []string{""},
	}
}

// Intern returns the Handle for s, assigning a new one if s hasn't been seen
// before. O(1) amortized.
func (in *Interner) Intern(s string) Handle {
	in.mu.RLock()
	if h, ok := in.byText[s]; ok {
		in.mu.RUnlock()
		return h
	}
	in.mu.RUnlock()

	in.mu.Lock()
	defer in.mu.Unlock()
	if h, ok := in.byText[s]; ok {
		return h
	}
	h := Handle(len(in.byIndex))
	in.byIndex = append(in.byIndex, s)
	in.byText[s] = h
	return h
}

// Resolve returns the string for a previously interned Handle. Resolving
// NoHandle or an unknown Handle returns "".
func (in *Interner) Resolve(h Handle) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(h) >= len(in.byIndex) {
		return ""
	}
	return in.byIndex[h]
}

// InternSymbol interns a possibly-namespaced name written as "ns/name" or
// just "name".
func (in *Interner) InternSymbol(ns, name string) Symbol {
	sym := Symbol{Name: in.Intern(name)}
	if ns != "" {
		sym.NS = in.Intern(ns)
	}
	return sym
}

// String renders a Symbol back to "ns/name" or "name" form.
func (in *Interner) String(s Symbol) string {
	name := in.Resolve(s.Name)
	if s.NS == NoHandle {
		return name
	}
	return in.Resolve(s.NS) + "/" + name
}

// Reserved keyword namespaces (spec.md §3): user declarations naming one of
// these are rejected by the schema registries in package store.
var ReservedNamespaces = map[string]bool{
	"rel":      true,
	"meta":     true,
	"runtime":  true,
	"system":   true,
	"internal": true,
}
