package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
)

// Cpu is the simulation context for the register machine.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register Registers // Register bank, including pc and sp.
	Memory   Memory    // Code, data and stack.
	Halted   bool      // Set once a halt instruction has executed.

	Ticks int // CPU ticks counter.
}

// NewCpu creates a new CPU with a specifically sized memory.
func NewCpu(size uint64) (cpu *Cpu) {
	cpu = &Cpu{
		Memory: NewMemory(size),
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%d", len(cpu.Memory)),
		"STACK_TOP":   fmt.Sprintf("%d", cpu.Memory.StackTop()),
	})
}

// Pc returns the program counter.
func (cpu *Cpu) Pc() uint64 {
	return cpu.Register[REG_PC]
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	for n, val := range cpu.Register {
		reg := CodeReg(n)
		text += fmt.Sprintf("% 5s: %08X_%08X\n", reg.String(), val>>32, val&0xffffffff)
	}

	return
}

// Reset the CPU state.
// - Clears memory and the registers.
// - Zeros statistics counters.
// - Sets the stack pointer to the last byte of memory.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	clear(cpu.Memory)
	cpu.Halted = false
	cpu.Ticks = 0

	cpu.Register[REG_SP] = cpu.Memory.StackTop()
}

// Load copies a binary image to the start of memory.
func (cpu *Cpu) Load(image []byte) (err error) {
	if len(image) > len(cpu.Memory) {
		err = ErrImageSize
		return
	}

	copy(cpu.Memory, image)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes", len(image))
	}

	return
}

// FetchCode decodes the instruction at the program counter.
func (cpu *Cpu) FetchCode() (inst Instruction, err error) {
	pc := cpu.Pc()

	switch {
	case cpu.Halted:
		err = ErrIpEmpty
		return
	case pc == uint64(len(cpu.Memory)):
		// Ran off the end of memory.
		err = ErrIpEmpty
		return
	case pc > uint64(len(cpu.Memory)):
		err = ErrIpRange
		return
	}

	inst, err = Decode(cpu.Memory, pc)
	if err != nil {
		err = errors.Join(ErrOpcode(inst), err)
	}

	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	inst, err := cpu.FetchCode()
	if err != nil {
		return
	}

	err = cpu.Execute(inst)
	if err != nil {
		return
	}

	return
}

// Execute executes a single decoded instruction located at the program
// counter. On error the CPU state is left as it was before the instruction.
func (cpu *Cpu) Execute(inst Instruction) (err error) {
	pc := cpu.Pc()
	saved := cpu.Register

	defer func() {
		if err != nil {
			cpu.Register = saved
			err = errors.Join(ErrOpcode(inst), err)
		}
	}()

	if cpu.Verbose {
		log.Printf("%06x: %v", pc, inst)
	}

	if !inst.Reg.Valid() || !inst.Arg.Valid() {
		err = ErrOpcodeReg
		return
	}

	if !inst.Type.Valid() {
		err = ErrOpcodeType
		return
	}

	reg := &cpu.Register
	mem := cpu.Memory

	// Operand reads see the program counter past this instruction.
	reg[REG_PC] = pc + uint64(inst.Size())

	// Conditional jumps test the live value of c against the embedded
	// condition.
	taken := reg[REG_C] == boolValue(inst.Cond)

	switch inst.Op {
	case OP_MOVE_REG:
		reg[inst.Reg] = reg[inst.Arg]
	case OP_MOVE_IMM:
		reg[inst.Reg] = inst.Value & inst.Type.Mask()
	case OP_READ_ABS:
		reg[inst.Reg], err = mem.Read(inst.Value, inst.Type)
	case OP_READ_REG:
		reg[inst.Reg], err = mem.Read(reg[inst.Arg], inst.Type)
	case OP_WRITE_ABS:
		err = mem.Write(inst.Value, inst.Type, reg[inst.Reg])
	case OP_WRITE_REG:
		err = mem.Write(reg[inst.Arg], inst.Type, reg[inst.Reg])
	case OP_PUSH_REG:
		reg[REG_SP], err = mem.Push(reg[REG_SP], inst.Type, reg[inst.Reg])
	case OP_PUSH_IMM:
		reg[REG_SP], err = mem.Push(reg[REG_SP], inst.Type, inst.Value)
	case OP_POP:
		var value uint64
		value, reg[REG_SP], err = mem.Pop(reg[REG_SP], inst.Type)
		reg[inst.Reg] = value
	case OP_JUMP_ABS:
		reg[REG_PC] = inst.Value
	case OP_JUMP_REG:
		reg[REG_PC] = reg[inst.Reg]
	case OP_JUMP_ABS_COND:
		if taken {
			reg[REG_PC] = inst.Value
		}
	case OP_JUMP_REG_COND:
		if taken {
			reg[REG_PC] = reg[inst.Reg]
		}
	case OP_HALT:
		cpu.Halted = true
	default:
		if inst.Op.IsAlu() {
			*reg, err = Alu(inst.Op, *reg)
		}
		// All other opcodes are no-ops.
	}

	if err != nil {
		return
	}

	cpu.Ticks += 1

	return
}
