package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbols(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(
		":start",
		"move byte a 1",
		"jump :start",
		":end",
	)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	data, err := prog.MarshalSymbols()
	assert.NoError(err)

	// Canonical encoding is stable.
	again, err := prog.MarshalSymbols()
	assert.NoError(err)
	assert.Equal(data, again)

	loaded, err := LoadProgram(prog.Binary(), data)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(prog.Image, loaded.Image)
	assert.Equal(prog.Labels, loaded.Labels)
	assert.Equal(prog.Opcodes, loaded.Opcodes)
	assert.Equal(2, loaded.Debug(3).LineNo)
	assert.Equal(3, loaded.Debug(5).LineNo)
}

func TestSymbolsMissing(t *testing.T) {
	assert := assert.New(t)

	prog, err := LoadProgram([]byte{byte(OP_HALT)}, nil)
	assert.NoError(err)
	assert.Equal([]byte{byte(OP_HALT)}, prog.Image)
	assert.Empty(prog.Labels)
	assert.Empty(prog.Opcodes)
	assert.Nil(prog.Debug(0).Opcode)
}

func TestSymbolsFormat(t *testing.T) {
	assert := assert.New(t)

	_, err := LoadProgram([]byte{0}, []byte{0xff, 0x00, 0x13})
	assert.ErrorIs(err, ErrSymbolsFormat)

	// Listing entries must lie within the image.
	prog := &Program{
		Image:   []byte{byte(OP_HALT)},
		Opcodes: []Opcode{{LineNo: 1, Offset: 0, Size: 4, Words: []string{"move", "byte", "a", "1"}}},
	}
	data, err := prog.MarshalSymbols()
	assert.NoError(err)

	_, err = LoadProgram(prog.Image, data)
	assert.ErrorIs(err, ErrSymbolsFormat)
}
