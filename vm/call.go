package vm

import (
	"github.com/TheBitDrifter/bark"
	"github.com/ndouglas/longtable/value"
)

// call pops a closure and argc arguments (closure on top of its
// arguments) and pushes a new frame for the callee.
func (m *VM) call(argc int) error {
	closureVal, err := m.pop(OpCall)
	if err != nil {
		return err
	}
	closure := closureVal.Closure()
	if closure == nil {
		return bark.AddTrace(TypeError{Op: OpCall, Expected: "closure", Got: closureVal.Kind()})
	}
	if closure.Address < 0 || closure.Address >= len(m.program.Chunks) {
		return bark.AddTrace(TypeError{Op: OpCall, Expected: "valid closure address"})
	}
	chunk := m.program.Chunks[closure.Address]

	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := m.pop(OpCall)
		if err != nil {
			return err
		}
		args[i] = v
	}
	if argc > chunk.NumLocals {
		return bark.AddTrace(ArityError{Name: chunk.Name, Got: argc, Expected: "<= declared locals"})
	}

	locals := make([]value.Value, chunk.NumLocals)
	copy(locals, args)
	m.frames = append(m.frames, frame{chunk: chunk, locals: locals, captures: closure.Captures, base: len(m.stack)})
	return nil
}

func (m *VM) callNative(idx int, ctx *Context) error {
	native, ok := m.program.Natives.Get(idx)
	if !ok {
		return bark.AddTrace(TypeError{Op: OpCallNative, Expected: "registered native"})
	}
	// PureOnly marks guard/let/order-by/derived/constraint evaluation
	// (spec.md §4.7 "Native functions"); a rule's :then body is the one
	// context that leaves it unset and may call effectful or
	// nondeterministic natives.
	if ctx.PureOnly && (!native.Pure || !native.Deterministic) {
		return bark.AddTrace(PurityViolationError{Name: native.Name})
	}

	// Native arity is variable; the compiler knows the call-site argument
	// count and encodes it as an OpConst(int) pushed just after the args
	// (on top of them, so it is popped first), so the VM doesn't need a
	// second opcode parameter here.
	countVal, err := m.pop(OpCallNative)
	if err != nil {
		return err
	}
	n := int(countVal.Int())
	if !native.Arity.accepts(n) {
		return bark.AddTrace(ArityError{Name: native.Name, Got: n, Expected: "matching declared arity"})
	}
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := m.pop(OpCallNative)
		if err != nil {
			return err
		}
		args[i] = v
	}
	result, err := native.Impl(ctx, args)
	if err != nil {
		return bark.AddTrace(NativeCallError{Name: native.Name, Err: err})
	}
	m.push(result)
	return nil
}
