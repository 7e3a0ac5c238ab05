package cpu

import (
	"encoding/binary"
	"fmt"
)

// CodeOp is an instruction opcode.
type CodeOp uint8

const (
	OP_NOP           = CodeOp(0)  // nop
	OP_MOVE_REG      = CodeOp(1)  // move reg reg
	OP_MOVE_IMM      = CodeOp(2)  // move type reg value
	OP_READ_ABS      = CodeOp(3)  // read type reg address
	OP_READ_REG      = CodeOp(4)  // read type reg reg
	OP_WRITE_ABS     = CodeOp(5)  // write type reg address
	OP_WRITE_REG     = CodeOp(6)  // write type reg reg
	OP_PUSH_REG      = CodeOp(7)  // push type reg
	OP_PUSH_IMM      = CodeOp(8)  // push type value
	OP_POP           = CodeOp(9)  // pop type reg
	OP_JUMP_ABS      = CodeOp(10) // jump address
	OP_JUMP_REG      = CodeOp(11) // jump reg
	OP_JUMP_ABS_COND = CodeOp(12) // jump address cond
	OP_JUMP_REG_COND = CodeOp(13) // jump reg cond
	OP_ADD           = CodeOp(14) // add
	OP_SUB           = CodeOp(15) // sub
	OP_MUL           = CodeOp(16) // mul
	OP_DIV           = CodeOp(17) // div
	OP_EQUAL         = CodeOp(18) // equal
	OP_LESS          = CodeOp(19) // less
	OP_NOT           = CodeOp(20) // not
	OP_AND           = CodeOp(21) // and
	OP_OR            = CodeOp(22) // or
	OP_XOR           = CodeOp(23) // xor
	OP_HALT          = CodeOp(24) // halt
)

// opMnemonic is the assembler mnemonic of each defined opcode.
var opMnemonic = [...]string{
	OP_NOP:           "nop",
	OP_MOVE_REG:      "move",
	OP_MOVE_IMM:      "move",
	OP_READ_ABS:      "read",
	OP_READ_REG:      "read",
	OP_WRITE_ABS:     "write",
	OP_WRITE_REG:     "write",
	OP_PUSH_REG:      "push",
	OP_PUSH_IMM:      "push",
	OP_POP:           "pop",
	OP_JUMP_ABS:      "jump",
	OP_JUMP_REG:      "jump",
	OP_JUMP_ABS_COND: "jump",
	OP_JUMP_REG_COND: "jump",
	OP_ADD:           "add",
	OP_SUB:           "sub",
	OP_MUL:           "mul",
	OP_DIV:           "div",
	OP_EQUAL:         "equal",
	OP_LESS:          "less",
	OP_NOT:           "not",
	OP_AND:           "and",
	OP_OR:            "or",
	OP_XOR:           "xor",
	OP_HALT:          "halt",
}

// String returns the mnemonic of the opcode.
func (op CodeOp) String() string {
	if int(op) < len(opMnemonic) {
		return opMnemonic[op]
	}
	return fmt.Sprintf("op%d", uint8(op))
}

// Defined returns true if the opcode has an assigned meaning.
// Undefined opcodes execute as a single byte no-op.
func (op CodeOp) Defined() bool {
	return int(op) < len(opMnemonic)
}

// IsAlu returns true for the fixed register arithmetic and logic opcodes.
func (op CodeOp) IsAlu() bool {
	return op >= OP_ADD && op <= OP_XOR
}

// CodeType is an operand width type tag.
type CodeType uint8

const (
	TYPE_BYTE  = CodeType(0) // byte
	TYPE_DBYTE = CodeType(1) // dbyte
	TYPE_QBYTE = CodeType(2) // qbyte
	TYPE_OBYTE = CodeType(3) // obyte
)

var typeName = [...]string{
	TYPE_BYTE:  "byte",
	TYPE_DBYTE: "dbyte",
	TYPE_QBYTE: "qbyte",
	TYPE_OBYTE: "obyte",
}

// Valid returns true if the type tag is one of the four widths.
func (ct CodeType) Valid() bool {
	return ct <= TYPE_OBYTE
}

// Size returns the width of the type in bytes.
func (ct CodeType) Size() int {
	return 1 << ct
}

// Mask returns the value mask of the type.
func (ct CodeType) Mask() uint64 {
	if ct >= TYPE_OBYTE {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * ct.Size())) - 1
}

func (ct CodeType) String() string {
	if ct.Valid() {
		return typeName[ct]
	}
	return fmt.Sprintf("type%d", uint8(ct))
}

// CodeReg is a register index.
type CodeReg uint8

const (
	REG_A  = CodeReg(0)  // a
	REG_B  = CodeReg(1)  // b
	REG_C  = CodeReg(2)  // c, ALU result and jump flag
	REG_D  = CodeReg(3)  // d, ALU remainder
	REG_E  = CodeReg(4)  // e
	REG_F  = CodeReg(5)  // f
	REG_G  = CodeReg(6)  // g
	REG_H  = CodeReg(7)  // h
	REG_I  = CodeReg(8)  // i
	REG_J  = CodeReg(9)  // j
	REG_K  = CodeReg(10) // k
	REG_L  = CodeReg(11) // l
	REG_M  = CodeReg(12) // m
	REG_N  = CodeReg(13) // n
	REG_PC = CodeReg(14) // pc
	REG_SP = CodeReg(15) // sp

	// Number of registers in the register file.
	REG_COUNT = 16
)

var regName = [REG_COUNT]string{
	"a", "b", "c", "d", "e", "f", "g", "h",
	"i", "j", "k", "l", "m", "n", "pc", "sp",
}

// Valid returns true if the register index names a register.
func (reg CodeReg) Valid() bool {
	return reg < REG_COUNT
}

func (reg CodeReg) String() string {
	if reg.Valid() {
		return regName[reg]
	}
	return fmt.Sprintf("r%d", uint8(reg))
}

// regMap is a map of register names to register indexes.
var regMap = func() map[string]CodeReg {
	m := make(map[string]CodeReg, REG_COUNT)
	for n, name := range regName {
		m[name] = CodeReg(n)
	}
	return m
}()

// typeMap is a map of type names to type tags.
var typeMap = map[string]CodeType{
	"byte":  TYPE_BYTE,
	"dbyte": TYPE_DBYTE,
	"qbyte": TYPE_QBYTE,
	"obyte": TYPE_OBYTE,
}

// Instruction is a single decoded instruction.
//
// Reg is the first register operand: the destination of moves, reads and
// pops, the source of writes and pushes, and the target of register jumps.
// Arg is the second register operand: the source of a register move, or the
// register holding the address of a register indirect read or write.
// Value is the literal or absolute address operand.
type Instruction struct {
	Op    CodeOp
	Type  CodeType
	Reg   CodeReg
	Arg   CodeReg
	Value uint64
	Cond  bool
}

// Size returns the number of bytes in the encoding of the instruction.
func (inst Instruction) Size() int {
	switch inst.Op {
	case OP_MOVE_REG, OP_JUMP_REG:
		return 2
	case OP_MOVE_IMM:
		return 3 + inst.Type.Size()
	case OP_READ_ABS, OP_WRITE_ABS:
		return 11
	case OP_READ_REG, OP_WRITE_REG, OP_PUSH_REG, OP_POP, OP_JUMP_REG_COND:
		return 3
	case OP_PUSH_IMM:
		return 2 + inst.Type.Size()
	case OP_JUMP_ABS:
		return 9
	case OP_JUMP_ABS_COND:
		return 10
	}

	return 1
}

// AddressOffset returns the offset of the 8-byte absolute address within
// the encoding, or -1 if the instruction has no absolute address operand.
func (inst Instruction) AddressOffset() int {
	switch inst.Op {
	case OP_JUMP_ABS:
		return 1
	case OP_JUMP_ABS_COND:
		return 2
	case OP_READ_ABS, OP_WRITE_ABS:
		return 3
	}

	return -1
}

// AppendValue appends the big-endian encoding of value, of width ct, to buf.
func AppendValue(buf []byte, ct CodeType, value uint64) []byte {
	switch ct {
	case TYPE_BYTE:
		return append(buf, uint8(value))
	case TYPE_DBYTE:
		return binary.BigEndian.AppendUint16(buf, uint16(value))
	case TYPE_QBYTE:
		return binary.BigEndian.AppendUint32(buf, uint32(value))
	}
	return binary.BigEndian.AppendUint64(buf, value)
}

func boolByte(cond bool) uint8 {
	if cond {
		return 1
	}
	return 0
}

// Encode returns the binary encoding of the instruction.
func (inst Instruction) Encode() (code []byte) {
	code = make([]byte, 0, inst.Size())
	code = append(code, uint8(inst.Op))

	packed := (uint8(inst.Reg&0xf) << 4) | uint8(inst.Arg&0xf)

	switch inst.Op {
	case OP_MOVE_REG:
		code = append(code, packed)
	case OP_MOVE_IMM:
		code = append(code, uint8(inst.Type), uint8(inst.Reg))
		code = AppendValue(code, inst.Type, inst.Value)
	case OP_READ_ABS, OP_WRITE_ABS:
		code = append(code, uint8(inst.Type), uint8(inst.Reg))
		code = binary.BigEndian.AppendUint64(code, inst.Value)
	case OP_READ_REG, OP_WRITE_REG:
		code = append(code, uint8(inst.Type), packed)
	case OP_PUSH_REG, OP_POP:
		code = append(code, uint8(inst.Type), uint8(inst.Reg))
	case OP_PUSH_IMM:
		code = append(code, uint8(inst.Type))
		code = AppendValue(code, inst.Type, inst.Value)
	case OP_JUMP_ABS:
		code = binary.BigEndian.AppendUint64(code, inst.Value)
	case OP_JUMP_REG:
		code = append(code, uint8(inst.Reg))
	case OP_JUMP_ABS_COND:
		code = append(code, boolByte(inst.Cond))
		code = binary.BigEndian.AppendUint64(code, inst.Value)
	case OP_JUMP_REG_COND:
		code = append(code, boolByte(inst.Cond), uint8(inst.Reg))
	}

	return
}

// decoder reads operand bytes from memory, advancing its program counter.
type decoder struct {
	mem Memory
	pc  uint64
}

func (dec *decoder) next(ct CodeType) (value uint64, err error) {
	value, err = dec.mem.Read(dec.pc, ct)
	if err != nil {
		return
	}
	dec.pc += uint64(ct.Size())
	return
}

func (dec *decoder) nextType() (ct CodeType, err error) {
	value, err := dec.next(TYPE_BYTE)
	if err != nil {
		return
	}
	ct = CodeType(value)
	if !ct.Valid() {
		err = ErrOpcodeType
	}
	return
}

func (dec *decoder) nextReg() (reg CodeReg, err error) {
	value, err := dec.next(TYPE_BYTE)
	if err != nil {
		return
	}
	reg = CodeReg(value)
	if !reg.Valid() {
		err = ErrOpcodeReg
	}
	return
}

func (dec *decoder) nextPacked() (reg, arg CodeReg, err error) {
	value, err := dec.next(TYPE_BYTE)
	if err != nil {
		return
	}
	reg = CodeReg((value >> 4) & 0xf)
	arg = CodeReg(value & 0xf)
	return
}

func (dec *decoder) nextCond() (cond bool, err error) {
	value, err := dec.next(TYPE_BYTE)
	if err != nil {
		return
	}
	switch value {
	case 0:
		cond = false
	case 1:
		cond = true
	default:
		err = ErrOpcodeCond
	}
	return
}

// Decode decodes the instruction at address pc of mem.
// On error the returned instruction holds as much as was decoded.
func Decode(mem Memory, pc uint64) (inst Instruction, err error) {
	dec := &decoder{mem: mem, pc: pc}

	op, err := dec.next(TYPE_BYTE)
	if err != nil {
		return
	}
	inst.Op = CodeOp(op)

	switch inst.Op {
	case OP_MOVE_REG:
		inst.Reg, inst.Arg, err = dec.nextPacked()
	case OP_MOVE_IMM:
		if inst.Type, err = dec.nextType(); err != nil {
			return
		}
		if inst.Reg, err = dec.nextReg(); err != nil {
			return
		}
		inst.Value, err = dec.next(inst.Type)
	case OP_READ_ABS, OP_WRITE_ABS:
		if inst.Type, err = dec.nextType(); err != nil {
			return
		}
		if inst.Reg, err = dec.nextReg(); err != nil {
			return
		}
		inst.Value, err = dec.next(TYPE_OBYTE)
	case OP_READ_REG, OP_WRITE_REG:
		if inst.Type, err = dec.nextType(); err != nil {
			return
		}
		inst.Reg, inst.Arg, err = dec.nextPacked()
	case OP_PUSH_REG, OP_POP:
		if inst.Type, err = dec.nextType(); err != nil {
			return
		}
		inst.Reg, err = dec.nextReg()
	case OP_PUSH_IMM:
		if inst.Type, err = dec.nextType(); err != nil {
			return
		}
		inst.Value, err = dec.next(inst.Type)
	case OP_JUMP_ABS:
		inst.Value, err = dec.next(TYPE_OBYTE)
	case OP_JUMP_REG:
		inst.Reg, err = dec.nextReg()
	case OP_JUMP_ABS_COND:
		if inst.Cond, err = dec.nextCond(); err != nil {
			return
		}
		inst.Value, err = dec.next(TYPE_OBYTE)
	case OP_JUMP_REG_COND:
		if inst.Cond, err = dec.nextCond(); err != nil {
			return
		}
		inst.Reg, err = dec.nextReg()
	}

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrOpcodeDecode, err)
	}

	return
}

// String returns the assembly language representation of this instruction.
// Undefined opcodes are shown as a byte data directive, so the text always
// reassembles to the same encoding.
func (inst Instruction) String() (out string) {
	switch inst.Op {
	case OP_MOVE_REG:
		out = fmt.Sprintf("move %v %v", inst.Reg, inst.Arg)
	case OP_MOVE_IMM:
		out = fmt.Sprintf("move %v %v %v", inst.Type, inst.Reg, inst.Value)
	case OP_READ_ABS, OP_WRITE_ABS:
		out = fmt.Sprintf("%v %v %v %v", inst.Op, inst.Type, inst.Reg, inst.Value)
	case OP_READ_REG, OP_WRITE_REG:
		out = fmt.Sprintf("%v %v %v %v", inst.Op, inst.Type, inst.Reg, inst.Arg)
	case OP_PUSH_REG, OP_POP:
		out = fmt.Sprintf("%v %v %v", inst.Op, inst.Type, inst.Reg)
	case OP_PUSH_IMM:
		out = fmt.Sprintf("push %v %v", inst.Type, inst.Value)
	case OP_JUMP_ABS:
		out = fmt.Sprintf("jump %v", inst.Value)
	case OP_JUMP_REG:
		out = fmt.Sprintf("jump %v", inst.Reg)
	case OP_JUMP_ABS_COND:
		out = fmt.Sprintf("jump %v %v", inst.Value, inst.Cond)
	case OP_JUMP_REG_COND:
		out = fmt.Sprintf("jump %v %v", inst.Reg, inst.Cond)
	default:
		if inst.Op.Defined() {
			out = inst.Op.String()
		} else {
			out = fmt.Sprintf("byte %v", uint8(inst.Op))
		}
	}

	return
}
