package vm

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/asmvm/internal"
	"github.com/ezrec/asmvm/io"
)

// Machine is the execution engine. It owns the memory, registers, symbol
// table, program and call stack. A machine must not be run from more than
// one goroutine at a time.
type Machine struct {
	Verbose bool             // Set to enable verbose logging.
	Warning func(err error)  // Receives non-fatal diagnostics, logged if nil.
	Clock   func() time.Time // Time source for the now syscall, time.Now if nil.
	Files   *io.Files        // Host files for syscalls and print.

	Memory    Memory        // Static data followed by the stack.
	Register  Registers     // Register bank.
	CallStack CallStack     // Return addresses.
	Program   []Instruction // Program text.
	StaticEnd uint32        // End of the static region.
	ExitCode  int32         // Exit code of the last halt.

	symbol  map[string]Symbol
	started bool
	halted  bool
}

// NewMachine creates a machine with size bytes of memory. A size of 0
// selects DEFAULT_MEMORY_SIZE.
func NewMachine(size uint32) (m *Machine) {
	if size == 0 {
		size = DEFAULT_MEMORY_SIZE
	}

	m = &Machine{
		Files:  &io.Files{},
		Memory: Memory{Data: make([]byte, size)},
		symbol: make(map[string]Symbol),
	}

	m.Reset()

	return
}

// Defines returns the assembler equates for the machine.
func (m *Machine) Defines() iter.Seq2[string, string] {
	memory := map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%d", m.Memory.Size()),
	}
	return internal.IterSeq2Concat(maps.All(memory),
		maps.All(_syscall_defines),
		m.Files.Defines(),
		io.ModeDefines(),
	)
}

// warn delivers a non-fatal diagnostic.
func (m *Machine) warn(err error) {
	if m.Warning != nil {
		m.Warning(err)
		return
	}
	log.Printf("vm: warning: %v", err)
}

// checkCallStack warns if a halting program left calls unreturned.
func (m *Machine) checkCallStack() {
	if !m.CallStack.Empty() {
		m.warn(ErrCallStackUnbalanced)
	}
}

// AddSymbol binds a name in the symbol table, replacing any previous
// binding. Variables are copied into the static region and the name is
// bound to their address instead.
func (m *Machine) AddSymbol(name string, sym Symbol) (err error) {
	if m.started {
		err = ErrProgramSealed
		return
	}

	if sym.Kind != KIND_VARIABLE {
		m.symbol[name] = sym
		return
	}

	address := m.StaticEnd
	var size uint32
	switch sym.Value.Type {
	case VALUE_TEXT:
		data := append([]byte(sym.Value.Text), 0)
		size = uint32(len(data))
		err = m.Memory.Store(address, data)
	default:
		size = uint32(WIDTH_4)
		err = m.Memory.Write(address, WIDTH_4, uint32(sym.Value.Int))
	}
	if err != nil {
		err = &ErrSymbol{Name: name, Err: err}
		return
	}

	m.StaticEnd += size
	m.symbol[name] = Symbol{Kind: KIND_VARIABLE, Value: Integer(int32(address))}

	// The stack starts after the static region.
	if m.St() < m.StaticEnd {
		m.Register[REG_ST] = int32(m.StaticEnd)
	}

	if m.Verbose {
		log.Printf("vm: var %v at %d size %d", name, address, size)
	}

	return
}

// AddInstruction appends an instruction to the program.
func (m *Machine) AddInstruction(ins Instruction) (err error) {
	if m.started {
		err = ErrProgramSealed
		return
	}

	err = ins.Validate()
	if err != nil {
		err = errors.Join(&ErrInstruction{Pc: len(m.Program), Instruction: ins}, err)
		return
	}

	m.Program = append(m.Program, ins)
	return
}

// AddLabeledInstruction binds label to the next program index and
// appends the instruction there.
func (m *Machine) AddLabeledInstruction(label string, ins Instruction) (err error) {
	err = ins.Validate()
	if err != nil {
		err = errors.Join(&ErrInstruction{Pc: len(m.Program), Instruction: ins}, err)
		return
	}

	err = m.AddSymbol(label, Label(len(m.Program)))
	if err != nil {
		return
	}

	return m.AddInstruction(ins)
}

// Len returns the number of program instructions.
func (m *Machine) Len() int {
	return len(m.Program)
}

// Lookup finds a symbol.
func (m *Machine) Lookup(name string) (sym Symbol, ok bool) {
	sym, ok = m.symbol[name]
	return
}

// Symbols iterates the symbol table in name order.
func (m *Machine) Symbols() iter.Seq2[string, Symbol] {
	return internal.IterSorted(m.symbol)
}

// symbolInteger resolves a symbol to its integer payload.
func (m *Machine) symbolInteger(name string) (value int32, err error) {
	sym, ok := m.symbol[name]
	if !ok {
		err = &ErrSymbol{Name: name, Err: ErrSymbolMissing}
		return
	}

	value, ok = sym.Integer()
	if !ok {
		err = &ErrSymbol{Name: name, Err: ErrSymbolKind}
		return
	}

	return
}

// Pc returns the program counter.
func (m *Machine) Pc() int {
	return int(uint32(m.Register[REG_PC]))
}

// St returns the stack pointer.
func (m *Machine) St() uint32 {
	return uint32(m.Register[REG_ST])
}

// Push writes value at the stack pointer and advances it by width.
func (m *Machine) Push(width Width, value uint32) (err error) {
	st := m.St()
	err = m.Memory.Write(st, width, value)
	if err != nil {
		return
	}

	m.Register[REG_ST] = int32(st + uint32(width))
	return
}

// Pop removes the 4 byte value below the stack pointer. Popping below
// the end of the static region is a stack underflow.
func (m *Machine) Pop() (value int32, err error) {
	st := m.St()
	if st < uint32(WIDTH_4) || st-uint32(WIDTH_4) < m.StaticEnd {
		err = ErrStackUnderflow
		return
	}

	st -= uint32(WIDTH_4)
	raw, err := m.Memory.Read(st, WIDTH_4)
	if err != nil {
		return
	}

	value = int32(raw)
	m.Register[REG_ST] = int32(st)
	return
}

// CallDepth returns the number of pending returns.
func (m *Machine) CallDepth() int {
	return m.CallStack.Depth()
}

// Reset the machine registers: general purpose registers are zeroed,
// st is set to the end of the static region and pc to 0. Memory is kept.
func (m *Machine) Reset() {
	clear(m.Register[:])
	m.Register[REG_ST] = int32(m.StaticEnd)
	m.CallStack.Reset()
	m.ExitCode = 0
	m.halted = false
}

// Tick executes a single instruction. done is set once the program halts.
func (m *Machine) Tick() (done bool, err error) {
	if m.halted {
		done = true
		return
	}

	m.started = true

	pc := m.Pc()
	if pc >= len(m.Program) {
		m.halted = true
		err = ErrPc(pc)
		return
	}

	ins := m.Program[pc]
	if m.Verbose {
		log.Printf("%03d: %v", pc, ins)
	}

	next, err := m.Execute(ins)
	if err != nil {
		m.halted = true
		var abort ErrAbort
		if errors.As(err, &abort) {
			m.checkCallStack()
		}
		return
	}

	if next.Halted() {
		m.halted = true
		m.ExitCode = next.Code()
		done = true
		if m.Verbose {
			log.Printf("vm: exit with code %d", m.ExitCode)
		}
		m.checkCallStack()
		return
	}

	m.Register[REG_PC] = int32(next)
	return
}

// Run resets the registers and executes from instruction 0 until the
// program halts. The exit code is returned, or an error if the program
// faulted or aborted.
func (m *Machine) Run() (code int, err error) {
	m.Reset()

	var done bool
	for !done && err == nil {
		done, err = m.Tick()
	}

	code = int(m.ExitCode)
	return
}

// String returns the register state as a string.
func (m *Machine) String() (text string) {
	for n, value := range m.Register {
		text += fmt.Sprintf("% 5s: %04X_%04X %d\n", RegisterName(n), uint32(value)>>16, uint32(value)&0xffff, value)
	}
	text += fmt.Sprintf("% 5s: %d\n", "calls", m.CallStack.Depth())

	return
}
