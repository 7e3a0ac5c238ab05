package cpu

// Registers is the register file.
type Registers [REG_COUNT]uint64

func boolValue(cond bool) uint64 {
	if cond {
		return 1
	}
	return 0
}

// Alu applies a fixed register ALU opcode to the register file, and
// returns the updated register file. Operands are always a and b, the
// result is always c, and div leaves the remainder in d.
// Arithmetic wraps modulo 2^64.
func Alu(op CodeOp, reg Registers) (out Registers, err error) {
	out = reg

	a := reg[REG_A]
	b := reg[REG_B]

	switch op {
	case OP_ADD:
		out[REG_C] = a + b
	case OP_SUB:
		out[REG_C] = a - b
	case OP_MUL:
		out[REG_C] = a * b
	case OP_DIV:
		if b == 0 {
			err = ErrDivideByZero
			out = reg
			return
		}
		out[REG_C] = a / b
		out[REG_D] = a % b
	case OP_EQUAL:
		out[REG_C] = boolValue(a == b)
	case OP_LESS:
		out[REG_C] = boolValue(a < b)
	case OP_NOT:
		out[REG_C] = ^a
	case OP_AND:
		out[REG_C] = a & b
	case OP_OR:
		out[REG_C] = a | b
	case OP_XOR:
		out[REG_C] = a ^ b
	default:
		err = ErrOpcodeAlu
	}

	return
}
