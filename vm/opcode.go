package vm

// Op is one bytecode instruction's opcode. Every Op has one of three
// operand shapes: none, an immediate u16 (an index into the chunk's
// constant pool or a local slot number), or a signed branch offset.
type Op uint8

const (
	OpNop Op = iota

	// Stack discipline.
	OpConst // operand: constant pool index
	OpPop
	OpDup

	// Arithmetic, comparison, logical (spec.md §4.7).
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpEq
	OpNotEq
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpNot
	OpAnd
	OpOr

	// Control flow: operand is a signed branch offset for jumps, an
	// immediate arg count for Call.
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpCall
	OpReturn
	// OpMakeClosure: A is the function address in the closure pool, Offset
	// is the capture count. The compiler pushes that many values, in
	// order, immediately before this instruction; MakeClosure pops them
	// into the new closure's capture frame.
	OpMakeClosure

	// Bindings: operand is a local slot / capture index.
	OpLoadLocal
	OpStoreLocal
	OpLoadCapture
	OpStoreCapture
	OpLoadBinding // rule-local pattern binding, operand: binding slot

	// World access (read-only; spec.md §4.7).
	OpGetComponent // pops binding, component-const; pushes value
	OpGetField     // pops binding, component-const, field-const; pushes value

	// Effects — route through the VM's single effect choke-point
	// (spec.md §4.7 "Effect choke-point").
	OpSpawn
	OpDestroy
	OpSet
	OpSetField
	OpLink
	OpUnlink

	// Collections.
	OpMakeVector // operand: element count
	OpMakeSet    // operand: element count
	OpMakeMap    // operand: pair count

	// Native dispatch: operand is an index into the native table.
	OpCallNative
)

func (op Op) String() string {
	names := [...]string{
		"nop", "const", "pop", "dup",
		"add", "sub", "mul", "div", "mod", "neg",
		"eq", "neq", "lt", "lte", "gt", "gte", "not", "and", "or",
		"jump", "jump_if_false", "jump_if_true", "call", "return", "make_closure",
		"load_local", "store_local", "load_capture", "store_capture", "load_binding",
		"get_component", "get_field",
		"spawn", "destroy", "set", "set_field", "link", "unlink",
		"make_vector", "make_set", "make_map",
		"call_native",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Instr is one decoded instruction: an opcode plus its operand (A or
// Offset; OpMakeClosure uses both). Unused operand slots are zero.
type Instr struct {
	Op      Op
	A       uint16
	Offset  int16
}
