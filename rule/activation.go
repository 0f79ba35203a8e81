package rule

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ndouglas/longtable/match"
)

// Activation is one candidate `{rule, binding-tuple}` pair (spec.md §4.9).
type Activation struct {
	Rule     *CompiledRule
	Bindings match.Bindings
	Key      string // refraction key, see bindingKey
}

// bindingKey canonicalizes a binding set into a refraction key: sorted by
// variable handle, each value folded through its own Hash so the key is
// stable regardless of map iteration order and consistent with Value's
// equality rules (NaN, +0/-0) per spec.md §3.
func bindingKey(ruleName string, b match.Bindings) string {
	vars := make([]match.Var, 0, len(b))
	for v := range b {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	var sb strings.Builder
	sb.WriteString(ruleName)
	for _, v := range vars {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatUint(b[v].Hash(), 16))
	}
	return sb.String()
}

func newActivation(rule *CompiledRule, b match.Bindings) Activation {
	return Activation{Rule: rule, Bindings: b, Key: bindingKey(rule.NameStr, b)}
}
