package cpu

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Symbols is the debug sidecar of a program: everything but the image.
type Symbols struct {
	Labels  map[string]uint64 `cbor:"1,keyasint"`
	Opcodes []Opcode          `cbor:"2,keyasint"`
}

// Canonical mode keeps the sidecar deterministic across runs.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cpu: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSymbols serializes the label table and listing to CBOR.
func (prog *Program) MarshalSymbols() ([]byte, error) {
	return cborEncMode.Marshal(&Symbols{
		Labels:  prog.Labels,
		Opcodes: prog.Opcodes,
	})
}

// LoadProgram builds a program from a binary image and an optional CBOR
// symbols sidecar.
func LoadProgram(image []byte, symbols []byte) (prog *Program, err error) {
	prog = &Program{
		Image:  image,
		Labels: map[string]uint64{},
	}

	if len(symbols) == 0 {
		return
	}

	var syms Symbols
	if err = cbor.Unmarshal(symbols, &syms); err != nil {
		err = errors.Join(ErrSymbolsFormat, err)
		prog = nil
		return
	}

	for _, op := range syms.Opcodes {
		if op.Offset+uint64(op.Size) > uint64(len(image)) {
			err = ErrSymbolsFormat
			prog = nil
			return
		}
	}

	if syms.Labels != nil {
		prog.Labels = syms.Labels
	}
	prog.Opcodes = syms.Opcodes

	return
}
