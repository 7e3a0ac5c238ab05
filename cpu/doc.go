// Package cpu implements the register machine and assembler for the regvm
// instruction set.
//
// The machine has sixteen 64-bit registers (a-n, pc, sp) and a flat byte
// addressed memory that holds code, data and the stack. Arithmetic and logic
// operations read registers a and b and leave their result in c, which is
// also the flag tested by conditional jumps. Memory accesses are big-endian,
// stack pushes and pops are little-endian.
//
// The assembler translates line oriented mnemonic text into the binary
// encoding, supporting labels, equates, macros, and compile-time expression
// evaluation.
package cpu
