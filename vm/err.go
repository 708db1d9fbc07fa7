package vm

import (
	"errors"

	"github.com/ezrec/asmvm/translate"
)

var f = translate.From

var (
	// Memory errors
	ErrOutOfMemory    = errors.New(f("out of memory"))
	ErrStackUnderflow = errors.New(f("stack underflow"))
	ErrUnterminated   = errors.New(f("string unterminated"))

	// Control flow errors
	ErrCallStackEmpty      = errors.New(f("return with empty call stack"))
	ErrCallStackFull       = errors.New(f("call stack full"))
	ErrCallStackUnbalanced = errors.New(f("call stack not empty at exit, check that every function ends with ret"))
	ErrPcInvalid           = errors.New(f("pc outside of program"))
	ErrDivideByZero        = errors.New(f("division by zero"))

	// Symbol errors
	ErrSymbolMissing = errors.New(f("symbol missing"))
	ErrSymbolKind    = errors.New(f("symbol is not an integer"))

	// Assembly errors
	ErrRegisterInvalid = errors.New(f("register invalid"))
	ErrOpcodeInvalid   = errors.New(f("opcode invalid"))
	ErrProgramSealed   = errors.New(f("program already run"))
)

// ErrSymbol reports a symbol that could not be resolved.
type ErrSymbol struct {
	Name string
	Err  error
}

func (err *ErrSymbol) Error() string {
	return f("symbol '%v' %v", err.Name, err.Err)
}

func (err *ErrSymbol) Unwrap() error {
	return err.Err
}

// ErrAbort is returned when a program exits with a negative code.
type ErrAbort int32

func (err ErrAbort) Error() string {
	return f("program aborted with code %d", int32(err))
}

// ErrAddress reports a memory access outside of the buffer.
type ErrAddress struct {
	Address uint32
	Size    uint32
	Limit   uint32
}

func (err *ErrAddress) Error() string {
	return f("invalid address [%d] size %d, memory size %d", err.Address, err.Size, err.Limit)
}

func (err *ErrAddress) Unwrap() error {
	return ErrOutOfMemory
}

// ErrInstruction locates a fault at a program index.
type ErrInstruction struct {
	Pc          int
	Instruction Instruction
}

func (err *ErrInstruction) Error() string {
	return f("pc %d [%v]", err.Pc, err.Instruction.String())
}

// ErrPc reports a fetch outside of the program.
type ErrPc int

func (err ErrPc) Error() string {
	return f("pc %d outside of program", int(err))
}

func (err ErrPc) Is(target error) bool {
	return target == ErrPcInvalid
}

// ErrSysCall reports an unknown system call function code.
type ErrSysCall int32

func (err ErrSysCall) Error() string {
	return f("syscall %d unknown", int32(err))
}

// ErrParamType reports an unknown print parameter type tag.
type ErrParamType int32

func (err ErrParamType) Error() string {
	return f("print parameter type %d unknown", int32(err))
}
