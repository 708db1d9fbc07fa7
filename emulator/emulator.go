// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator loads assembly source into a machine and runs it,
// reporting faults against the source lines.
package emulator

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/ezrec/asmvm/asm"
	"github.com/ezrec/asmvm/internal"
	"github.com/ezrec/asmvm/vm"
)

var _emulator_defines = map[string]string{
	"CALL_STACK_LIMIT": fmt.Sprintf("%v", vm.CALL_STACK_LIMIT),
	"REGISTER_COUNT":   fmt.Sprintf("%v", vm.REGISTER_COUNT),
}

// Emulator state. Machine + assembler predefines.
type Emulator struct {
	Verbose     bool // If set, enables verbose logging.
	*vm.Machine      // Reference to the machine.

	predefine map[string]string // User predefines, applied last.
}

// NewEmulator creates a new emulator with size bytes of memory, 0 for
// the default size.
func NewEmulator(size uint32) (emu *Emulator) {
	emu = &Emulator{
		Machine: vm.NewMachine(size),
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Machine.Defines(),
		maps.All(emu.predefine),
	)
}

// Define sets an assembler equate, overriding the system defines.
func (emu *Emulator) Define(name string, value string) {
	if emu.predefine == nil {
		emu.predefine = make(map[string]string)
	}
	emu.predefine[name] = value
}

// Load assembles source into the machine.
func (emu *Emulator) Load(input io.Reader) (err error) {
	assembler := &asm.Assembler{Verbose: emu.Verbose}
	for name, value := range emu.Defines() {
		assembler.Predefine(name, value)
	}

	return assembler.Parse(input, emu.Machine)
}

// Close closes all files opened by the program.
func (emu *Emulator) Close() (err error) {
	return emu.Machine.Files.Reset()
}

// lineOf returns the source line of a program index, 0 if unknown.
func (emu *Emulator) lineOf(pc int) int {
	if pc < 0 || pc >= len(emu.Machine.Program) {
		return 0
	}
	return emu.Machine.Program[pc].LineNo
}

// LineNo returns the current line number for the executing instruction.
func (emu *Emulator) LineNo() int {
	return emu.lineOf(emu.Machine.Pc())
}

// Instruction returns the instruction at pc, if any.
func (emu *Emulator) Instruction() (ins vm.Instruction, ok bool) {
	pc := emu.Machine.Pc()
	if pc < 0 || pc >= len(emu.Machine.Program) {
		return
	}

	return emu.Machine.Program[pc], true
}

// Tick performs a single instruction of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set machine verbosity
	emu.Machine.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	return emu.Machine.Tick()
}

// Run resets and runs the program to completion.
func (emu *Emulator) Run() (code int, err error) {
	emu.Machine.Verbose = emu.Verbose

	code, err = emu.Machine.Run()
	if err != nil {
		lineno := 0
		var ins_err *vm.ErrInstruction
		if errors.As(err, &ins_err) {
			lineno = ins_err.Instruction.LineNo
		}
		err = &ErrRuntime{LineNo: lineno, Err: err}
	}

	return
}
