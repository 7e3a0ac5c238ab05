package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramDebug(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(
		"move byte a 1", // 0..3
		"",
		"jump :here", // 4..12
		":here halt", // 13
	)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	table := []struct {
		pc     uint64
		lineno int
		index  int
	}{
		{0, 1, 0},
		{3, 1, 3},
		{4, 3, 0},
		{5, 3, 1},
		{12, 3, 8},
		{13, 4, 0},
	}

	for _, entry := range table {
		dbg := prog.Debug(entry.pc)
		if assert.NotNil(dbg.Opcode, "pc %d", entry.pc) {
			assert.Equal(entry.lineno, dbg.LineNo, "pc %d", entry.pc)
			assert.Equal(entry.index, dbg.Index, "pc %d", entry.pc)
		}
	}

	assert.Nil(prog.Debug(14).Opcode)
	assert.Nil((&Program{}).Debug(0).Opcode)
}

func TestProgramBinary(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{Image: []byte{1, 2, 3}}
	bin := prog.Binary()
	assert.Equal(prog.Image, bin)

	bin[0] = 99
	assert.Equal(uint8(1), prog.Image[0])
}

func TestProgramCodes(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(
		"move a b",
		"push dbyte 7",
		"jump 3 true",
		"halt",
	)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	var offsets []uint64
	var ops []CodeOp
	for offset, inst := range prog.Codes() {
		offsets = append(offsets, offset)
		ops = append(ops, inst.Op)
	}
	assert.Equal([]uint64{0, 2, 6, 16}, offsets)
	assert.Equal([]CodeOp{OP_MOVE_REG, OP_PUSH_IMM, OP_JUMP_ABS_COND, OP_HALT}, ops)

	// Early exit from the iteration.
	count := 0
	for range prog.Codes() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(2, count)

	// Decoding stops at a truncated instruction.
	prog.Image = append(prog.Image, byte(OP_JUMP_ABS), 0)
	count = 0
	for range prog.Codes() {
		count++
	}
	assert.Equal(4, count)
}
