// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/regvm/cpu"
	"github.com/ezrec/regvm/internal"
)

// Emulator state. CPU + memory + the program being run.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	MaxTicks int               // Tick budget per run, 0 for unlimited.
	Equates  map[string]string // Assembler predefines from the configuration.
}

// NewEmulator creates a new emulator.
func NewEmulator(cfg Config) (emu *Emulator) {
	size := cfg.MemorySize
	if size == 0 {
		size = cpu.MEMORY_SIZE
	}

	emu = &Emulator{
		Verbose:  cfg.Verbose,
		Cpu:      cpu.NewCpu(size),
		Program:  &cpu.Program{},
		MaxTicks: cfg.MaxTicks,
		Equates:  maps.Clone(cfg.Equates),
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(
		emu.Cpu.Defines(),
		maps.All(map[string]string{
			"MAX_TICKS": fmt.Sprintf("%d", emu.MaxTicks),
		}),
	)
}

// Assembler returns an assembler predefined with the emulator defines, then
// the configured equates.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}
	for key, value := range emu.Equates {
		asm.Predefine(key, value)
	}

	return
}

// Reset the emulator state, and load the program image.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()

	err = emu.Cpu.Load(emu.Program.Binary())
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: reset, %d labels", len(emu.Program.Labels))
	}

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Pc returns current program counter.
func (emu *Emulator) Pc() uint64 {
	return emu.Cpu.Pc()
}

// Code returns the instruction at the program counter.
func (emu *Emulator) Code() cpu.Instruction {
	inst, _ := cpu.Decode(emu.Cpu.Memory, emu.Pc())
	return inst
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Pc())
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.Opcode.LineNo
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	pc := emu.Pc()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Pc: pc, Err: err}
		}
	}()

	// A program that has ended is done, even on an exhausted budget.
	if emu.Cpu.Halted || pc == uint64(len(emu.Cpu.Memory)) {
		done = true
		return
	}

	if emu.MaxTicks > 0 && emu.Cpu.Ticks >= emu.MaxTicks {
		err = ErrTickBudget
		return
	}

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrIpEmpty) {
		err = nil
		done = true
		return
	}

	return
}

// Run ticks the emulator until the program ends or faults.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if err != nil {
			return
		}
		if done {
			break
		}
	}

	if emu.Verbose {
		log.Printf("emulator: done after %d ticks", emu.Ticks())
	}

	return
}
