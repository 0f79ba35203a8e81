// Package vm implements the stack-based bytecode virtual machine that
// backs rule bodies, derived-component expressions, and constraint checks:
// a compact opcode set, closures with shared capture cells, a
// native-function ABI split on purity/determinism, and the single effect
// choke-point every world mutation routes through.
package vm
