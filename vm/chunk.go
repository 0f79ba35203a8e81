package vm

import "github.com/ndouglas/longtable/value"

// Chunk is a self-contained, immutable compiled function body: its
// instruction stream, constant pool, and the number of local slots its
// frame needs. A CompiledProgram (see package longtable) is a flat pool of
// Chunks addressed by integer address — OpMakeClosure and OpCall both
// operate on addresses into that pool, never on Chunk pointers directly,
// so serialized bytecode stays relocation-free.
type Chunk struct {
	Code      []Instr
	Constants []value.Value
	NumLocals int
	Name      string
}
