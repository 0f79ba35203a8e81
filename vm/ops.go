package vm

import (
	"math"

	"github.com/TheBitDrifter/bark"
	"github.com/ndouglas/longtable/value"
)

func (m *VM) binArith(op Op, ctx *Context) error {
	b, err := m.pop(op)
	if err != nil {
		return err
	}
	a, err := m.pop(op)
	if err != nil {
		return err
	}
	if a.Kind() == value.KindInt && b.Kind() == value.KindInt && op != OpDiv {
		var r int64
		switch op {
		case OpAdd:
			r = a.Int() + b.Int()
		case OpSub:
			r = a.Int() - b.Int()
		case OpMul:
			r = a.Int() * b.Int()
		case OpMod:
			if b.Int() == 0 {
				return bark.AddTrace(TypeError{Op: op, Expected: "nonzero divisor", Got: value.KindInt})
			}
			r = a.Int() % b.Int()
		}
		m.push(value.Int(r))
		return nil
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok {
		return bark.AddTrace(TypeError{Op: op, Expected: "number", Got: a.Kind()})
	}
	if !bok {
		return bark.AddTrace(TypeError{Op: op, Expected: "number", Got: b.Kind()})
	}
	var r float64
	switch op {
	case OpAdd:
		r = af + bf
	case OpSub:
		r = af - bf
	case OpMul:
		r = af * bf
	case OpDiv:
		r = af / bf
	case OpMod:
		r = math.Mod(af, bf)
	}
	if ctx.FailOnNaN && math.IsNaN(r) {
		return bark.AddTrace(NaNError{Op: op})
	}
	m.push(value.Float(r))
	return nil
}

func asFloat(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KindInt:
		return float64(v.Int()), true
	case value.KindFloat:
		return v.Float(), true
	}
	return 0, false
}

func (m *VM) unaryNeg() error {
	v, err := m.pop(OpNeg)
	if err != nil {
		return err
	}
	switch v.Kind() {
	case value.KindInt:
		m.push(value.Int(-v.Int()))
		return nil
	case value.KindFloat:
		m.push(value.Float(-v.Float()))
		return nil
	}
	return bark.AddTrace(TypeError{Op: OpNeg, Expected: "number", Got: v.Kind()})
}

func (m *VM) binEq(op Op) error {
	b, err := m.pop(op)
	if err != nil {
		return err
	}
	a, err := m.pop(op)
	if err != nil {
		return err
	}
	eq := a.Equal(b)
	if op == OpNotEq {
		eq = !eq
	}
	m.push(value.Bool(eq))
	return nil
}

func (m *VM) binCompare(op Op) error {
	b, err := m.pop(op)
	if err != nil {
		return err
	}
	a, err := m.pop(op)
	if err != nil {
		return err
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		m.push(value.Bool(compareFloat(op, af, bf)))
		return nil
	}
	if a.Kind() == value.KindString && b.Kind() == value.KindString {
		m.push(value.Bool(compareString(op, a.Str(), b.Str())))
		return nil
	}
	return bark.AddTrace(TypeError{Op: op, Expected: "comparable", Got: a.Kind()})
}

func compareFloat(op Op, a, b float64) bool {
	switch op {
	case OpLess:
		return a < b
	case OpLessEq:
		return a <= b
	case OpGreater:
		return a > b
	case OpGreaterEq:
		return a >= b
	}
	return false
}

func compareString(op Op, a, b string) bool {
	switch op {
	case OpLess:
		return a < b
	case OpLessEq:
		return a <= b
	case OpGreater:
		return a > b
	case OpGreaterEq:
		return a >= b
	}
	return false
}

func (m *VM) unaryNot() error {
	v, err := m.pop(OpNot)
	if err != nil {
		return err
	}
	m.push(value.Bool(!v.Truthy()))
	return nil
}

// binLogical implements non-short-circuit and/or; the compiler emits
// OpJumpIfFalse/OpJumpIfTrue sequences instead when short-circuit
// evaluation matters.
func (m *VM) binLogical(op Op) error {
	b, err := m.pop(op)
	if err != nil {
		return err
	}
	a, err := m.pop(op)
	if err != nil {
		return err
	}
	var r bool
	if op == OpAnd {
		r = a.Truthy() && b.Truthy()
	} else {
		r = a.Truthy() || b.Truthy()
	}
	m.push(value.Bool(r))
	return nil
}
