package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func FuzzDecode(f *testing.F) {
	for _, entry := range opcodeTable {
		f.Add(entry.code)
	}
	f.Add([]byte{})
	f.Add([]byte{2, 9, 0})

	f.Fuzz(func(t *testing.T, code []byte) {
		assert := assert.New(t)

		inst, err := Decode(Memory(code), 0)
		if err != nil {
			assert.True(errors.Is(err, ErrOpcodeDecode) || errors.Is(err, ErrMemoryRange), err)
			return
		}

		// Anything that decodes re-encodes to the same bytes.
		assert.LessOrEqual(inst.Size(), len(code))
		assert.Equal(code[:inst.Size()], inst.Encode())
	})
}

func FuzzCpu(f *testing.F) {
	for op := range 32 {
		f.Add(uint8(op), uint8(0), uint8(0x12), uint64(0x0123456789abcdef))
		f.Add(uint8(op), uint8(3), uint8(0xff), uint64(0))
	}

	f.Fuzz(func(t *testing.T, op uint8, ct uint8, reg uint8, value uint64) {
		assert := assert.New(t)

		inst := Instruction{
			Op:    CodeOp(op),
			Type:  CodeType(ct & 3),
			Reg:   CodeReg(reg >> 4),
			Arg:   CodeReg(reg & 0xf),
			Value: value & CodeType(ct&3).Mask(),
			Cond:  value&1 == 1,
		}

		cpu := NewCpu(64)
		for n := range cpu.Register {
			cpu.Register[n] = uint64(n * 3)
		}
		cpu.Register[REG_B] = value | 1
		cpu.Register[REG_PC] = 0
		cpu.Register[REG_SP] = cpu.Memory.StackTop()
		assert.NoError(cpu.Load(inst.Encode()))

		before := cpu.Register
		err := cpu.Tick()
		if err != nil {
			// Faults leave the registers untouched.
			assert.Equal(before, cpu.Register)
			assert.ErrorIs(err, ErrOpcode{})
			return
		}

		assert.Equal(1, cpu.Ticks)

		switch inst.Op {
		case OP_JUMP_ABS, OP_JUMP_REG, OP_JUMP_ABS_COND, OP_JUMP_REG_COND:
		case OP_MOVE_REG, OP_MOVE_IMM, OP_READ_ABS, OP_READ_REG, OP_POP:
			if inst.Reg != REG_PC {
				assert.Equal(uint64(inst.Size()), cpu.Pc())
			}
		default:
			assert.Equal(uint64(inst.Size()), cpu.Pc())
		}

		if inst.Op == OP_PUSH_REG || inst.Op == OP_PUSH_IMM {
			pushed := inst.Value
			if inst.Op == OP_PUSH_REG {
				pushed = before[inst.Reg]
				if inst.Reg == REG_PC {
					pushed = uint64(inst.Size())
				}
			}
			got, sp, err := cpu.Memory.Pop(cpu.Register[REG_SP], inst.Type)
			assert.NoError(err)
			assert.Equal(pushed&inst.Type.Mask(), got)
			assert.Equal(before[REG_SP], sp)
		}
	})
}
