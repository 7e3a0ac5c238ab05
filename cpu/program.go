package cpu

import (
	"iter"
	"slices"
)

// Opcode represents a line of assembled code with its source location and
// the span of the image it generated.
type Opcode struct {
	LineNo int      `cbor:"1,keyasint"`
	Offset uint64   `cbor:"2,keyasint"`
	Size   int      `cbor:"3,keyasint"`
	Words  []string `cbor:"4,keyasint"`
}

// Program is an assembled binary image, with its listing and label table.
type Program struct {
	Image   []byte
	Opcodes []Opcode
	Labels  map[string]uint64
}

// Debug locates a program counter within the listing: the opcode that
// generated it, and the byte index into that opcode's encoding.
type Debug struct {
	*Opcode
	Index int
}

// Debug returns the listing entry that generated the byte at pc, and the
// index of pc within it.
func (prog *Program) Debug(pc uint64) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if pc >= op.Offset && pc < op.Offset+uint64(op.Size) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(pc - op.Offset),
			}
			break
		}
	}

	return
}

// Binary returns a copy of the program image.
func (prog *Program) Binary() (bin []byte) {
	return slices.Clone(prog.Image)
}

// Codes decodes the image from the start, yielding each instruction with its
// offset. Decoding stops at the end of the image, or at the first
// undecodable instruction.
func (prog *Program) Codes() iter.Seq2[uint64, Instruction] {
	return func(yield func(offset uint64, inst Instruction) bool) {
		mem := Memory(prog.Image)
		offset := uint64(0)
		for offset < uint64(len(mem)) {
			inst, err := Decode(mem, offset)
			if err != nil {
				return
			}
			if !yield(offset, inst) {
				return
			}
			offset += uint64(inst.Size())
		}
	}
}
