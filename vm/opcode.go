package vm

import (
	"strconv"
	"strings"
)

// Opcode is an instruction operation.
type Opcode int

const (
	OP_ADD     = Opcode(0)  // add
	OP_SUB     = Opcode(1)  // sub
	OP_MUL     = Opcode(2)  // mul
	OP_DIV     = Opcode(3)  // div
	OP_MOD     = Opcode(4)  // mod
	OP_AND     = Opcode(5)  // and
	OP_OR      = Opcode(6)  // or
	OP_XOR     = Opcode(7)  // xor
	OP_SHL     = Opcode(8)  // shl
	OP_SHR     = Opcode(9)  // shr
	OP_NOT     = Opcode(10) // not
	OP_JMP     = Opcode(11) // jmp
	OP_CALL    = Opcode(12) // call
	OP_JZ      = Opcode(13) // jz
	OP_JNZ     = Opcode(14) // jnz
	OP_RET     = Opcode(15) // ret
	OP_MOV     = Opcode(16) // mov
	OP_PUSH    = Opcode(17) // push
	OP_POP     = Opcode(18) // pop
	OP_LD1     = Opcode(19) // ld1
	OP_LD2     = Opcode(20) // ld2
	OP_LD4     = Opcode(21) // ld4
	OP_ST1     = Opcode(22) // st1
	OP_ST2     = Opcode(23) // st2
	OP_ST4     = Opcode(24) // st4
	OP_PUSHN   = Opcode(25) // pushn
	OP_POPN    = Opcode(26) // popn
	OP_INC     = Opcode(27) // inc
	OP_DEC     = Opcode(28) // dec
	OP_PRINT   = Opcode(29) // print
	OP_FPRINT  = Opcode(30) // fprint
	OP_EXIT    = Opcode(31) // exit
	OP_SYSCALL = Opcode(32) // syscall
)

var opcodeNames = [...]string{
	"add", "sub", "mul", "div", "mod",
	"and", "or", "xor", "shl", "shr", "not",
	"jmp", "call", "jz", "jnz", "ret",
	"mov", "push", "pop",
	"ld1", "ld2", "ld4", "st1", "st2", "st4",
	"pushn", "popn", "inc", "dec",
	"print", "fprint", "exit", "syscall",
}

func (op Opcode) String() string {
	if op < 0 || int(op) >= len(opcodeNames) {
		return "Opcode(" + strconv.Itoa(int(op)) + ")"
	}
	return opcodeNames[op]
}

// OpcodeOf looks up an opcode by mnemonic.
func OpcodeOf(name string) (op Opcode, ok bool) {
	for n, mnemonic := range opcodeNames {
		if mnemonic == name {
			return Opcode(n), true
		}
	}
	return
}

// Ternary returns true for the arithmetic and bitwise SRC, SRC, DST forms.
func (op Opcode) Ternary() bool {
	return op >= OP_ADD && op <= OP_SHR
}

// Width returns the access width of a load or store.
func (op Opcode) Width() Width {
	switch op {
	case OP_LD1, OP_ST1:
		return WIDTH_1
	case OP_LD2, OP_ST2:
		return WIDTH_2
	}
	return WIDTH_4
}

// Instruction is a single decoded program entry. Which fields are
// meaningful depends on Op, see the Make* constructors.
type Instruction struct {
	Op     Opcode
	LineNo int // Source line, 0 if unknown.

	Src1    Source      // First (or only) source operand.
	Src2    Source      // Second source operand.
	Dst     int         // Destination register.
	Reg     int         // Tested, updated or printed register.
	Store   bool        // pop: save the value into Dst.
	Address Address     // Memory operand.
	Label   string      // Jump target.
	Bytes   uint32      // pushn/popn byte count.
	Items   []Printable // print operands.
}

// MakeTernary creates dst = src1 OP src2.
func MakeTernary(op Opcode, src1, src2 Source, dst int) Instruction {
	return Instruction{Op: op, Src1: src1, Src2: src2, Dst: dst}
}

// MakeNot creates dst = ^reg.
func MakeNot(reg, dst int) Instruction {
	return Instruction{Op: OP_NOT, Reg: reg, Dst: dst}
}

// MakeJump creates jmp or call to a label.
func MakeJump(op Opcode, label string) Instruction {
	return Instruction{Op: op, Label: label}
}

// MakeBranch creates jz or jnz on a register.
func MakeBranch(op Opcode, reg int, label string) Instruction {
	return Instruction{Op: op, Reg: reg, Label: label}
}

// MakeRet creates a return.
func MakeRet() Instruction {
	return Instruction{Op: OP_RET}
}

// MakeMov creates dst = src.
func MakeMov(dst int, src Source) Instruction {
	return Instruction{Op: OP_MOV, Dst: dst, Src1: src}
}

// MakePush creates a 4 byte push.
func MakePush(src Source) Instruction {
	return Instruction{Op: OP_PUSH, Src1: src}
}

// MakePop creates a pop that discards the value.
func MakePop() Instruction {
	return Instruction{Op: OP_POP}
}

// MakePopTo creates a pop into a register.
func MakePopTo(dst int) Instruction {
	return Instruction{Op: OP_POP, Dst: dst, Store: true}
}

// MakeLoad creates ld1, ld2 or ld4.
func MakeLoad(op Opcode, dst int, addr Address) Instruction {
	return Instruction{Op: op, Dst: dst, Address: addr}
}

// MakeStore creates st1, st2 or st4.
func MakeStore(op Opcode, src Source, addr Address) Instruction {
	return Instruction{Op: op, Src1: src, Address: addr}
}

// MakeStackAdjust creates pushn or popn.
func MakeStackAdjust(op Opcode, bytes uint32) Instruction {
	return Instruction{Op: op, Bytes: bytes}
}

// MakeStep creates inc or dec.
func MakeStep(op Opcode, reg int) Instruction {
	return Instruction{Op: op, Reg: reg}
}

// MakePrint creates a print of the items.
func MakePrint(items ...Printable) Instruction {
	return Instruction{Op: OP_PRINT, Items: items}
}

// MakeFprint prints a register as a float.
func MakeFprint(reg int) Instruction {
	return Instruction{Op: OP_FPRINT, Reg: reg}
}

// MakeExit creates an exit with the code from src.
func MakeExit(src Source) Instruction {
	return Instruction{Op: OP_EXIT, Src1: src}
}

// MakeSysCall creates a syscall of function fn, status to dst.
func MakeSysCall(fn Source, dst int) Instruction {
	return Instruction{Op: OP_SYSCALL, Src1: fn, Dst: dst}
}

// Validate checks the opcode and the register operands.
func (ins Instruction) Validate() (err error) {
	ok := true

	switch {
	case ins.Op.Ternary():
		ok = ins.Src1.valid() && ins.Src2.valid() && ValidRegister(ins.Dst)
	case ins.Op == OP_NOT:
		ok = ValidRegister(ins.Reg) && ValidRegister(ins.Dst)
	case ins.Op == OP_JMP, ins.Op == OP_CALL, ins.Op == OP_RET:
	case ins.Op == OP_JZ, ins.Op == OP_JNZ, ins.Op == OP_INC, ins.Op == OP_DEC, ins.Op == OP_FPRINT:
		ok = ValidRegister(ins.Reg)
	case ins.Op == OP_MOV, ins.Op == OP_SYSCALL:
		ok = ins.Src1.valid() && ValidRegister(ins.Dst)
	case ins.Op == OP_PUSH, ins.Op == OP_EXIT:
		ok = ins.Src1.valid()
	case ins.Op == OP_POP:
		ok = !ins.Store || ValidRegister(ins.Dst)
	case ins.Op == OP_LD1, ins.Op == OP_LD2, ins.Op == OP_LD4:
		ok = ins.Address.valid() && ValidRegister(ins.Dst)
	case ins.Op == OP_ST1, ins.Op == OP_ST2, ins.Op == OP_ST4:
		ok = ins.Address.valid() && ins.Src1.valid()
	case ins.Op == OP_PUSHN, ins.Op == OP_POPN:
	case ins.Op == OP_PRINT:
		for _, item := range ins.Items {
			ok = ok && (item.IsText || item.Source.valid())
		}
	default:
		return ErrOpcodeInvalid
	}

	if !ok {
		err = ErrRegisterInvalid
	}

	return
}

// String returns the assembly language form of the instruction.
func (ins Instruction) String() string {
	var args []string

	switch {
	case ins.Op.Ternary():
		args = []string{ins.Src1.String(), ins.Src2.String(), RegisterName(ins.Dst)}
	case ins.Op == OP_NOT:
		args = []string{RegisterName(ins.Reg), RegisterName(ins.Dst)}
	case ins.Op == OP_JMP, ins.Op == OP_CALL:
		args = []string{ins.Label}
	case ins.Op == OP_JZ, ins.Op == OP_JNZ:
		args = []string{RegisterName(ins.Reg), ins.Label}
	case ins.Op == OP_MOV:
		args = []string{RegisterName(ins.Dst), ins.Src1.String()}
	case ins.Op == OP_SYSCALL:
		args = []string{ins.Src1.String(), RegisterName(ins.Dst)}
	case ins.Op == OP_PUSH, ins.Op == OP_EXIT:
		args = []string{ins.Src1.String()}
	case ins.Op == OP_POP:
		if ins.Store {
			args = []string{RegisterName(ins.Dst)}
		}
	case ins.Op == OP_LD1, ins.Op == OP_LD2, ins.Op == OP_LD4:
		args = []string{RegisterName(ins.Dst), ins.Address.String()}
	case ins.Op == OP_ST1, ins.Op == OP_ST2, ins.Op == OP_ST4:
		args = []string{ins.Src1.String(), ins.Address.String()}
	case ins.Op == OP_PUSHN, ins.Op == OP_POPN:
		args = []string{strconv.FormatUint(uint64(ins.Bytes), 10)}
	case ins.Op == OP_INC, ins.Op == OP_DEC, ins.Op == OP_FPRINT:
		args = []string{RegisterName(ins.Reg)}
	case ins.Op == OP_PRINT:
		for _, item := range ins.Items {
			args = append(args, item.String())
		}
	}

	if len(args) == 0 {
		return ins.Op.String()
	}

	return ins.Op.String() + " " + strings.Join(args, ", ")
}

// Next is the result of executing an instruction: a non-negative program
// index to continue at, or a negative value v halting with code -1 - v.
type Next int32

// Continue at program index pc.
func Continue(pc int) Next {
	return Next(pc)
}

// Halt with exit code. code must not be negative.
func Halt(code int32) Next {
	return Next(-1 - code)
}

// Halted returns true if the program terminates.
func (next Next) Halted() bool {
	return next < 0
}

// Code returns the exit code of a halt.
func (next Next) Code() int32 {
	return -1 - int32(next)
}
