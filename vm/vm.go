package vm

import (
	"github.com/TheBitDrifter/bark"
	"github.com/ndouglas/longtable/value"
)

// State is the VM's execution state machine (spec.md §4.7: "idle ->
// running -> (returned(value) | failed(error))"). The VM never mutates its
// input bytecode; Failed is terminal for the current Run call.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StateReturned
	StateFailed
)

// Program is the flat pool of compiled chunks and native bindings a
// running VM resolves call/closure addresses and CallNative indices
// against (spec.md §6 "compiled program").
type Program struct {
	Chunks  []*Chunk
	Natives *NativeTable
}

// frame is one call's activation record: its chunk, instruction pointer,
// local slots, and (if it's a closure call) the shared capture vector.
type frame struct {
	chunk    *Chunk
	ip       int
	locals   []value.Value
	captures *[]value.Value
	base     int // stack index the frame's operands start at
}

// VM executes one compiled chunk against a Context. A VM instance is not
// reentrant — each Run call owns its own stack and frame list.
type VM struct {
	program  *Program
	stack    []value.Value
	frames   []frame
	bindings []value.Value
	state    State
}

func New(program *Program) *VM {
	return &VM{program: program}
}

// Run executes chunk (optionally as a closure call with shared captures)
// against ctx, with bindings pre-populated from the calling rule's pattern
// match (OpLoadBinding reads from this slice). It returns the chunk's
// return value or the first runtime error encountered.
func (m *VM) Run(chunk *Chunk, captures *[]value.Value, args []value.Value, bindings []value.Value, ctx *Context) (value.Value, error) {
	m.stack = m.stack[:0]
	m.frames = m.frames[:0]
	m.bindings = bindings
	m.state = StateRunning

	locals := make([]value.Value, chunk.NumLocals)
	copy(locals, args)
	m.frames = append(m.frames, frame{chunk: chunk, locals: locals, captures: captures})

	val, err := m.loop(ctx)
	if err != nil {
		m.state = StateFailed
		return value.Nil, err
	}
	m.state = StateReturned
	return val, nil
}

func (m *VM) push(v value.Value) { m.stack = append(m.stack, v) }

func (m *VM) pop(op Op) (value.Value, error) {
	n := len(m.stack)
	if n == 0 {
		return value.Nil, bark.AddTrace(StackUnderflowError{Op: op})
	}
	v := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return v, nil
}

func (m *VM) top() *frame { return &m.frames[len(m.frames)-1] }

func (m *VM) loop(ctx *Context) (value.Value, error) {
	for {
		f := m.top()
		if f.ip >= len(f.chunk.Code) {
			// Falling off the end of a chunk returns nil, matching a
			// body whose last statement was an effect, not an expression.
			if len(m.frames) == 1 {
				return value.Nil, nil
			}
			m.frames = m.frames[:len(m.frames)-1]
			m.push(value.Nil)
			continue
		}
		instr := f.chunk.Code[f.ip]
		f.ip++

		ret, done, err := m.exec(instr, f, ctx)
		if err != nil {
			return value.Nil, err
		}
		if done {
			return ret, nil
		}
	}
}

// exec executes one instruction. done is true only when the outermost
// frame returns.
func (m *VM) exec(instr Instr, f *frame, ctx *Context) (ret value.Value, done bool, err error) {
	switch instr.Op {
	case OpNop:
		// no-op

	case OpConst:
		m.push(f.chunk.Constants[instr.A])

	case OpPop:
		if _, err = m.pop(instr.Op); err != nil {
			return
		}

	case OpDup:
		if len(m.stack) == 0 {
			err = bark.AddTrace(StackUnderflowError{Op: instr.Op})
			return
		}
		m.push(m.stack[len(m.stack)-1])

	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		err = m.binArith(instr.Op, ctx)
	case OpNeg:
		err = m.unaryNeg()
	case OpEq, OpNotEq:
		err = m.binEq(instr.Op)
	case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		err = m.binCompare(instr.Op)
	case OpNot:
		err = m.unaryNot()
	case OpAnd, OpOr:
		err = m.binLogical(instr.Op)

	case OpJump:
		f.ip += int(instr.Offset)
	case OpJumpIfFalse:
		var v value.Value
		if v, err = m.pop(instr.Op); err != nil {
			return
		}
		if !v.Truthy() {
			f.ip += int(instr.Offset)
		}
	case OpJumpIfTrue:
		var v value.Value
		if v, err = m.pop(instr.Op); err != nil {
			return
		}
		if v.Truthy() {
			f.ip += int(instr.Offset)
		}

	case OpMakeClosure:
		// Offset carries the capture count: the compiler pushes that many
		// values (in order) just before OpMakeClosure, the same
		// push-then-fixed-arity-op convention OpCall uses for arguments.
		n := int(instr.Offset)
		captures := value.NewFrame(n)
		for i := n - 1; i >= 0; i-- {
			var v value.Value
			if v, err = m.pop(instr.Op); err != nil {
				return
			}
			(*captures)[i] = v
		}
		m.push(value.FromClosure(&value.Closure{Address: int(instr.A), Captures: captures}))

	case OpCall:
		err = m.call(int(instr.A))
	case OpReturn:
		var v value.Value
		if v, err = m.pop(instr.Op); err != nil {
			return
		}
		if len(m.frames) == 1 {
			return v, true, nil
		}
		m.frames = m.frames[:len(m.frames)-1]
		m.push(v)

	case OpLoadLocal:
		m.push(f.locals[instr.A])
	case OpStoreLocal:
		var v value.Value
		if v, err = m.pop(instr.Op); err != nil {
			return
		}
		f.locals[instr.A] = v
	case OpLoadCapture:
		m.push((*f.captures)[instr.A])
	case OpStoreCapture:
		var v value.Value
		if v, err = m.pop(instr.Op); err != nil {
			return
		}
		(*f.captures)[instr.A] = v
	case OpLoadBinding:
		if int(instr.A) >= len(m.bindings) {
			m.push(value.Nil)
		} else {
			m.push(m.bindings[instr.A])
		}

	case OpGetComponent:
		err = m.getComponent(f, ctx)
	case OpGetField:
		err = m.getField(f, ctx)

	case OpSpawn, OpDestroy, OpSet, OpSetField, OpLink, OpUnlink:
		err = m.effect(instr, f, ctx)

	case OpMakeVector:
		err = m.makeVector(int(instr.A))
	case OpMakeSet:
		err = m.makeSet(int(instr.A))
	case OpMakeMap:
		err = m.makeMap(int(instr.A))

	case OpCallNative:
		err = m.callNative(int(instr.A), ctx)

	default:
		err = bark.AddTrace(TypeError{Op: instr.Op, Expected: "known opcode"})
	}
	return value.Nil, false, err
}
