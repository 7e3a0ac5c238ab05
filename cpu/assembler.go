// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Reference is a use of a label whose address is patched in after all
// labels are known.
type Reference struct {
	Label  string // Referenced label name.
	Offset uint64 // Image offset of the 8-byte big-endian address.
	LineNo int    // Line number of the reference.
	Line   string // Text of the referencing instruction.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"MEMORY_SIZE": fmt.Sprintf("%d", MEMORY_SIZE),
	"STACK_TOP":   fmt.Sprintf("%d", MEMORY_SIZE-1),
}

// LABEL_MARK starts a label declaration, and optionally a label reference.
const LABEL_MARK = ":"

// Assembler is a two pass macro assembler for the regvm instruction set.
//
// The first pass emits code, recording label declarations and the image
// offsets of label references. The second pass patches each reference with
// its label's address.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]uint64   // Map of labels to image offsets.
	Reference []Reference         // Label references, in source order.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	output    []byte // Image being generated.
	offset    uint64 // Offset of the next emitted byte.
	expansion int    // Count of macro expansions, for '@' local names.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// number parses an unsigned literal of bits width. Underscores are ignored,
// and only an explicit 0x, 0o or 0b prefix selects a base other than decimal.
func number(word string, bits int) (value uint64, err error) {
	digits := strings.ReplaceAll(word, "_", "")
	for len(digits) > 1 && digits[0] == '0' && digits[1] >= '0' && digits[1] <= '9' {
		digits = digits[1:]
	}

	return strconv.ParseUint(digits, 0, bits)
}

// valueOf returns the value of a literal sized to the type tag.
// A byte literal that is not a number is the code of its first character.
func (asm *Assembler) valueOf(word string, ct CodeType) (value uint64, err error) {
	literal := word
	invert := false
	if len(literal) > 1 && literal[0] == '~' {
		invert = true
		literal = literal[1:]
	}

	value, err = number(literal, 8*ct.Size())
	if err != nil {
		if ct == TYPE_BYTE && !errors.Is(err, strconv.ErrRange) {
			value = uint64([]rune(word)[0] & 0xff)
			err = nil
			return
		}
		err = ErrParseNumber(word)
		return
	}

	if invert {
		value = ^value & ct.Mask()
	}

	return
}

// addressOf returns the value of an absolute address literal.
func (asm *Assembler) addressOf(word string) (addr uint64, err error) {
	addr, err = number(word, 64)
	if err != nil {
		err = ErrParseNumber(word)
	}
	return
}

// register returns the register index of a register name.
func (asm *Assembler) register(word string) (reg CodeReg, err error) {
	reg, ok := regMap[word]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// typeOf returns the type tag of a type name.
func (asm *Assembler) typeOf(word string) (ct CodeType, err error) {
	ct, ok := typeMap[word]
	if !ok {
		err = ErrTypeInvalid
	}
	return
}

// condition returns the jump condition of a boolean word.
func (asm *Assembler) condition(word string) (cond bool, err error) {
	switch word {
	case "true":
		cond = true
	case "false":
		cond = false
	default:
		err = ErrConditionInvalid
	}
	return
}

// labelName validates a label name, with or without its LABEL_MARK.
func (asm *Assembler) labelName(word string) (label string, err error) {
	label = strings.TrimPrefix(word, LABEL_MARK)
	if len(label) == 0 {
		err = ErrLabelInvalid
		return
	}
	if _, is_reg := regMap[label]; is_reg {
		err = ErrLabelInvalid
		return
	}
	if _, not_num := asm.addressOf(label); not_num == nil {
		err = ErrLabelInvalid
		return
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value64 uint64
		value64, err = asm.addressOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeUint64(value64)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	if st_int64, ok := st_int.Int64(); ok && st_int64 < 0 {
		// Negative values wrap, as they would in a register.
		value = uint64(st_int64)
		return
	}
	value, ok = st_int.Uint64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parseLine parses a single line into words, handling equates, labels and
// macro expansion.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%d", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%d", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasPrefix(words[0], LABEL_MARK) {
		var label string
		label, err = asm.labelName(words[0])
		if err != nil {
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = asm.offset
		if asm.Verbose {
			log.Printf("asm: label %v = %#x", label, asm.offset)
		}
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansion++
		local := fmt.Sprintf("%v_%v_", name, asm.expansion)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// emit appends code to the image, returning the number of bytes written.
// The return value is the only source of offset advancement.
func (asm *Assembler) emit(code []byte) (count int) {
	asm.output = append(asm.output, code...)
	count = len(code)
	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]uint64, 16)
	asm.Reference = asm.Reference[:0]
	asm.Opcode = asm.Opcode[:0]
	asm.output = nil
	asm.offset = 0
	asm.expansion = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.SplitN(text, ";", 2)
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if err = scanner.Err(); err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of label references.
	for _, ref := range asm.Reference {
		addr, ok := asm.Label[ref.Label]
		if !ok {
			lineno = ref.LineNo
			line = ref.Line
			err = ErrLabelMissing(ref.Label)
			return
		}
		binary.BigEndian.PutUint64(asm.output[ref.Offset:ref.Offset+8], addr)
		if asm.Verbose {
			log.Printf("asm: link %v @ %#x = %#x", ref.Label, ref.Offset, addr)
		}
	}

	prog = &Program{
		Image:   asm.output,
		Opcodes: append([]Opcode(nil), asm.Opcode...),
		Labels:  maps.Clone(asm.Label),
	}

	return
}

// args checks the operand count of an instruction.
func args(words []string, min int, max int) (err error) {
	count := len(words) - 1
	switch {
	case count < min:
		err = ErrOpcodeValueMissing
	case count > max:
		err = ErrOpcodeExtraArgs
	}
	return
}

// aluMap maps fixed register ALU opcode names.
var aluMap = map[string]CodeOp{
	"add":   OP_ADD,
	"sub":   OP_SUB,
	"mul":   OP_MUL,
	"div":   OP_DIV,
	"equal": OP_EQUAL,
	"less":  OP_LESS,
	"not":   OP_NOT,
	"and":   OP_AND,
	"or":    OP_OR,
	"xor":   OP_XOR,
	"nop":   OP_NOP,
	"halt":  OP_HALT,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var code []byte
	var label string
	link := -1

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(code) == 0 {
			return
		}
		offset := asm.offset
		size := asm.emit(code)
		asm.offset += uint64(size)
		opcode := Opcode{LineNo: lineno, Offset: offset, Size: size, Words: initial_words}
		asm.Opcode = append(asm.Opcode, opcode)
		if len(label) != 0 {
			asm.Reference = append(asm.Reference, Reference{
				Label:  label,
				Offset: offset + uint64(link),
				LineNo: lineno,
				Line:   strings.Join(initial_words, " "),
			})
		}
	}()

	var inst Instruction

	switch words[0] {
	case "move":
		if err = args(words, 2, 3); err != nil {
			return
		}
		if dst, is_reg := regMap[words[1]]; is_reg {
			// move <reg> <reg>
			if err = args(words, 2, 2); err != nil {
				return
			}
			inst = Instruction{Op: OP_MOVE_REG, Reg: dst}
			if inst.Arg, err = asm.register(words[2]); err != nil {
				return
			}
			break
		}
		// move <type> <reg> <value>
		if err = args(words, 3, 3); err != nil {
			return
		}
		inst = Instruction{Op: OP_MOVE_IMM}
		if inst.Type, err = asm.typeOf(words[1]); err != nil {
			return
		}
		if inst.Reg, err = asm.register(words[2]); err != nil {
			return
		}
		if inst.Value, err = asm.valueOf(words[3], inst.Type); err != nil {
			return
		}
	case "read", "write":
		// read <type> <reg> <reg|address>
		if err = args(words, 3, 3); err != nil {
			return
		}
		if inst.Type, err = asm.typeOf(words[1]); err != nil {
			return
		}
		if inst.Reg, err = asm.register(words[2]); err != nil {
			return
		}
		if arg, is_reg := regMap[words[3]]; is_reg {
			inst.Op = OP_READ_REG
			if words[0] == "write" {
				inst.Op = OP_WRITE_REG
			}
			inst.Arg = arg
			break
		}
		inst.Op = OP_READ_ABS
		if words[0] == "write" {
			inst.Op = OP_WRITE_ABS
		}
		if inst.Value, err = asm.addressOf(words[3]); err != nil {
			return
		}
	case "push":
		// push <type> <reg|value>
		if err = args(words, 2, 2); err != nil {
			return
		}
		if inst.Type, err = asm.typeOf(words[1]); err != nil {
			return
		}
		if reg, is_reg := regMap[words[2]]; is_reg {
			inst.Op = OP_PUSH_REG
			inst.Reg = reg
			break
		}
		inst.Op = OP_PUSH_IMM
		if inst.Value, err = asm.valueOf(words[2], inst.Type); err != nil {
			return
		}
	case "pop":
		// pop <type> <reg>
		if err = args(words, 2, 2); err != nil {
			return
		}
		inst.Op = OP_POP
		if inst.Type, err = asm.typeOf(words[1]); err != nil {
			return
		}
		if inst.Reg, err = asm.register(words[2]); err != nil {
			return
		}
	case "jump":
		// jump <reg|address|label> [cond]
		if err = args(words, 1, 2); err != nil {
			return
		}
		conditional := len(words) == 3
		if conditional {
			if inst.Cond, err = asm.condition(words[2]); err != nil {
				return
			}
		}
		target := words[1]
		if reg, is_reg := regMap[target]; is_reg {
			inst.Op = OP_JUMP_REG
			if conditional {
				inst.Op = OP_JUMP_REG_COND
			}
			inst.Reg = reg
			break
		}
		inst.Op = OP_JUMP_ABS
		if conditional {
			inst.Op = OP_JUMP_ABS_COND
		}
		if addr, addr_err := asm.addressOf(target); addr_err == nil {
			inst.Value = addr
			break
		}
		if label, err = asm.labelName(target); err != nil {
			return
		}
		link = inst.AddressOffset()
	case "byte", "dbyte", "qbyte", "obyte":
		// Raw big-endian data.
		if err = args(words, 1, 1); err != nil {
			return
		}
		ct := typeMap[words[0]]
		var value uint64
		if value, err = asm.valueOf(words[1], ct); err != nil {
			return
		}
		code = AppendValue(nil, ct, value)
		return
	default:
		op, ok := aluMap[words[0]]
		if !ok {
			err = ErrInstructionInvalid
			return
		}
		if err = args(words, 0, 0); err != nil {
			return
		}
		inst.Op = op
	}

	code = inst.Encode()

	return
}
