package asm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/asmvm/vm"
)

// at sets the source line of an instruction.
func at(lineno int, ins vm.Instruction) vm.Instruction {
	ins.LineNo = lineno
	return ins
}

// assemble parses program lines into a new machine.
func assemble(t *testing.T, asm *Assembler, program ...string) (m *vm.Machine) {
	m = vm.NewMachine(0)

	err := asm.Parse(strings.NewReader(strings.Join(program, "\n")), m)
	assert.NoError(t, err)
	if err != nil {
		t.Fatal(errors.Unwrap(err))
	}

	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	m := assemble(t, asm)
	assert.Equal(0, m.Len())
	assert.Equal("0", asm.Equate["LINENO"])
}

func TestAssemblerScenario(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	m := assemble(t, asm,
		"Mov r0, 5",
		"Mov r1, 3",
		"Add r0, r1, r2",
		"Exit r2",
	)

	expected := []vm.Instruction{
		at(1, vm.MakeMov(0, vm.Imm(5))),
		at(2, vm.MakeMov(1, vm.Imm(3))),
		at(3, vm.MakeTernary(vm.OP_ADD, vm.Reg(0), vm.Reg(1), 2)),
		at(4, vm.MakeExit(vm.Reg(2))),
	}
	assert.Equal(expected, m.Program)

	code, err := m.Run()
	assert.NoError(err)
	assert.Equal(8, code)
}

func TestAssemblerOperands(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	m := assemble(t, asm,
		`.var msg "hi"`,
		".const TEN 10",
		"ld4 r0, [msg + 4]",
		"ld1 r1, [r2 + r3]",
		"st2 'A', [0x10]",
		"pushn TEN",
		"popn $(TEN - 2)",
		`print "v=", r0, "\n"`,
		"syscall SYS_NOW, r3",
		"pop",
		"pop r7",
		"not r1, r2",
		"jz r0, done",
		"push ~0",
		"done: exit 0",
	)

	expected := []vm.Instruction{
		at(3, vm.MakeLoad(vm.OP_LD4, 0, vm.AtSym("msg").Plus(vm.Imm(4)))),
		at(4, vm.MakeLoad(vm.OP_LD1, 1, vm.AtReg(2).Plus(vm.Reg(3)))),
		at(5, vm.MakeStore(vm.OP_ST2, vm.Imm('A'), vm.AtImm(0x10))),
		at(6, vm.MakeStackAdjust(vm.OP_PUSHN, 10)),
		at(7, vm.MakeStackAdjust(vm.OP_POPN, 8)),
		at(8, vm.MakePrint(vm.PrintText("v="), vm.PrintSource(vm.Reg(0)), vm.PrintText("\n"))),
		at(9, vm.MakeSysCall(vm.Sym("SYS_NOW"), 3)),
		at(10, vm.MakePop()),
		at(11, vm.MakePopTo(7)),
		at(12, vm.MakeNot(1, 2)),
		at(13, vm.MakeBranch(vm.OP_JZ, 0, "done")),
		at(14, vm.MakePush(vm.Imm(-1))),
		at(15, vm.MakeExit(vm.Imm(0))),
	}
	assert.Equal(expected, m.Program)

	sym, ok := m.Lookup("done")
	assert.True(ok)
	assert.Equal(vm.Label(12), sym)

	sym, ok = m.Lookup("TEN")
	assert.True(ok)
	assert.Equal(vm.Constant(vm.Integer(10)), sym)

	sym, ok = m.Lookup("msg")
	assert.True(ok)
	assert.Equal(vm.Variable(vm.Integer(0)), sym)
	assert.Equal(uint32(3), m.StaticEnd)
}

func TestAssemblerLiterals(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	m := assemble(t, asm,
		`.const GREETING "hello, world"`,
		`.var buf "semi;colon" ; trailing comment`,
		".const NEG -3",
		".var copy NEG",
		`mov r0, '\n'`,
		"mov r1, ' '",
		"mov r2, NEG",
	)

	sym, _ := m.Lookup("GREETING")
	assert.Equal(vm.Constant(vm.Text("hello, world")), sym)

	text, err := m.Memory.CString(0)
	assert.NoError(err)
	assert.Equal("semi;colon", text)

	sym, _ = m.Lookup("copy")
	address, _ := sym.Integer()
	value, err := m.Memory.Read(uint32(address), vm.WIDTH_4)
	assert.NoError(err)
	assert.Equal(int32(-3), int32(value))

	expected := []vm.Instruction{
		at(5, vm.MakeMov(0, vm.Imm('\n'))),
		at(6, vm.MakeMov(1, vm.Imm(' '))),
		at(7, vm.MakeMov(2, vm.Sym("NEG"))),
	}
	assert.Equal(expected, m.Program)
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	m := assemble(t, asm,
		".equ CONST_10 0x10",
		"mov r0, CONST_10",
		"mov r1, $(CONST_10 + CONST_10)",
		".equ CONST_30 $(2 * CONST_10 + CONST_10)",
		"mov r2, CONST_30",
		"mov r3, $(LINENO * 8 + 0x10)",
		".equ ACC r4",
		"mov ACC, $(-5)",
		"ld4 ACC, [ACC + CONST_10]",
	)

	expected := []vm.Instruction{
		at(2, vm.MakeMov(0, vm.Imm(16))),
		at(3, vm.MakeMov(1, vm.Imm(32))),
		at(5, vm.MakeMov(2, vm.Imm(48))),
		at(6, vm.MakeMov(3, vm.Imm(64))),
		at(8, vm.MakeMov(4, vm.Imm(-5))),
		at(9, vm.MakeLoad(vm.OP_LD4, 4, vm.AtReg(4).Plus(vm.Imm(16)))),
	}
	assert.Equal(expected, m.Program)
	assert.Equal("48", asm.Equate["CONST_30"])
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SIZE", "64")
	asm.Predefine("SIZE", "128")
	for key, value := range vm.NewMachine(0).Defines() {
		asm.Predefine(key, value)
	}

	m := assemble(t, asm,
		"pushn SIZE",
		"mov r0, $(SIZE // 2)",
		"syscall SYS_NOW, r1",
		"mov r2, $(MODE_READ | MODE_WRITE)",
		"exit MEMORY_SIZE",
	)

	expected := []vm.Instruction{
		at(1, vm.MakeStackAdjust(vm.OP_PUSHN, 128)),
		at(2, vm.MakeMov(0, vm.Imm(64))),
		at(3, vm.MakeSysCall(vm.Imm(vm.SYS_NOW), 1)),
		at(4, vm.MakeMov(2, vm.Imm(3))),
		at(5, vm.MakeExit(vm.Imm(2048))),
	}
	assert.Equal(expected, m.Program)
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	m := assemble(t, asm,
		".macro SETADD rn, a, b",
		"mov rn, a",
		"add rn, b, rn",
		".endm",
		"SETADD r0, 8, 8",
		".macro COUNT R",
		"@loop: dec R",
		"jnz R, @loop",
		".endm",
		"mov r1, 3",
		"COUNT r1",
		"mov r2, 2",
		"COUNT r2",
		"exit r0",
	)

	expected := []vm.Instruction{
		at(2, vm.MakeMov(0, vm.Imm(8))),
		at(3, vm.MakeTernary(vm.OP_ADD, vm.Reg(0), vm.Imm(8), 0)),
		at(10, vm.MakeMov(1, vm.Imm(3))),
		at(7, vm.MakeStep(vm.OP_DEC, 1)),
		at(8, vm.MakeBranch(vm.OP_JNZ, 1, "COUNT_2_loop")),
		at(12, vm.MakeMov(2, vm.Imm(2))),
		at(7, vm.MakeStep(vm.OP_DEC, 2)),
		at(8, vm.MakeBranch(vm.OP_JNZ, 2, "COUNT_3_loop")),
		at(14, vm.MakeExit(vm.Reg(0))),
	}
	assert.Equal(expected, m.Program)

	assert.Equal(3, asm.Label["COUNT_2_loop"])
	assert.Equal(6, asm.Label["COUNT_3_loop"])
	_, ok := asm.Equate["rn"]
	assert.False(ok)

	code, err := m.Run()
	assert.NoError(err)
	assert.Equal(16, code)
	assert.Equal(int32(0), m.Register[1])
	assert.Equal(int32(0), m.Register[2])
}

func TestAssemblerMacroQuoted(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	m := assemble(t, asm,
		".macro MAIL",
		`@at: print "me@host"`,
		".endm",
		"MAIL",
		"exit 0",
	)

	var stdout bytes.Buffer
	m.Files.Stdout = &stdout

	_, err := m.Run()
	assert.NoError(err)
	assert.Equal("me@host", stdout.String())
	assert.Equal(0, asm.Label["MAIL_1_at"])
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	m := assemble(t, asm,
		"jmp L0",
		"L1: mov r1, 0x20",
		"jmp L2",
		"L0: ALSO:",
		"mov r0, 0x10",
		"jmp L1",
		"L2:",
		"",
		"mov r2, 0x30",
		"END:",
	)

	assert.Equal(6, m.Len())

	table := map[string]int{
		"L0":   3,
		"ALSO": 3,
		"L1":   1,
		"L2":   5,
		"END":  6,
	}
	for label, index := range table {
		sym, ok := m.Lookup(label)
		assert.True(ok, label)
		assert.Equal(vm.Label(index), sym, label)
		assert.Equal(index, asm.Label[label], label)
	}
}

func TestAssemblerCall(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	m := assemble(t, asm,
		".var count 0",
		"call bump",
		"call bump",
		"ld4 r0, [count]",
		"exit r0",
		"bump:",
		"ld4 r1, [count]",
		"inc r1",
		"st4 r1, [count]",
		"ret",
	)

	code, err := m.Run()
	assert.NoError(err)
	assert.Equal(2, code)
	assert.Equal(0, m.CallDepth())
}

func TestAssemblerReuse(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	assemble(t, asm, ".equ A 1", ".macro M", ".endm", "L: ret")

	m := assemble(t, asm, ".equ A 2", "L: mov r0, A")
	assert.Equal([]vm.Instruction{at(2, vm.MakeMov(0, vm.Imm(2)))}, m.Program)
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Various syntax errors
	table := [](struct {
		prog string
		line int
	}){
		{"DUP:\nDUP:\n", 2},
		{"1abc: ret", 1},
		{"mov r0, nothing here", 1},
		{"mov r0, $(\"aaa\")", 1},
		{"mov r0, $(more(\"aaa\"))", 1},
		{"mov r0, $(0x10000000000000000)", 1},
		{"mov r0, [r1", 1},
		{"mov r0, r1]", 1},
		{"mov r9, 1", 1},
		{"mov r0", 1},
		{"mov r0, \"text\"", 1},
		{"add r0, r1", 1},
		{"add r0, r1, 5", 1},
		{"not 1, r0", 1},
		{"jmp", 1},
		{"jmp 12", 1},
		{"jz r0", 1},
		{"ret r0", 1},
		{"pop r0, r1", 1},
		{"ld4 r0, r1", 1},
		{"ld4 r0, [r1 + ]", 1},
		{"ld4 r0, [\"x\"]", 1},
		{"st4 [r0], r1", 1},
		{"pushn -4", 1},
		{"popn r0", 1},
		{"inc 4", 1},
		{"print", 1},
		{"print \"abc", 1},
		{"print \"\\q\"", 1},
		{"syscall 0", 1},
		{"nop", 1},
		{".bogus", 1},
		{".equ", 1},
		{".equ A", 1},
		{".equ A 1\n.equ A 2\n", 2},
		{".equ LINENO 3", 1},
		{".const", 1},
		{".var X", 1},
		{".var 1X 2", 1},
		{".const X Y", 1},
		{".macro", 1},
		{".macro A B C\n.endm\nA 1\n", 3},
		{".macro A B\nmov B, 1\n.endm\nA r0\nA bad\n", 5},
		{".macro A B\n.macro C\n.endm\n.endm", 2},
		{".macro A B\n.endm\n.macro A\n.endm\n", 3},
		{".macro A B\n.endm\n.endm\n", 3},
		{".macro A\nmov r0, 1\n", 2},
		{".macro A\nA\n.endm\nA\n", 4},
	}

	for _, entry := range table {
		err := asm.Parse(strings.NewReader(entry.prog), vm.NewMachine(0))
		var se *ErrSyntax
		assert.NotNil(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &se), entry.prog)
			assert.Equal(entry.line, se.LineNo, entry.prog)
		}
	}
}

func TestAssemblerErrKind(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	table := []struct {
		prog     string
		expected error
	}{
		{"DUP:\nDUP:", ErrLabelDuplicate},
		{".equ A 1\n.equ A 2", ErrEquateDuplicate},
		{"mov r0, [r1", ErrBracketUnbalanced},
		{"nop", ErrInstructionInvalid},
		{"add r0, r1", ErrOpcodeValueMissing},
		{"ret r0", ErrOpcodeExtraArgs},
		{".macro A\nA\n.endm\nA", ErrMacroDepth},
		{".macro A\n.endm\n.endm", ErrMacroLonelyEndm},
		{".macro A\nmov r0, 1", ErrMacroLonely},
	}

	for _, entry := range table {
		err := asm.Parse(strings.NewReader(entry.prog), vm.NewMachine(0))
		assert.ErrorIs(err, entry.expected, entry.prog)
	}

	// Memory exhaustion is reported by the builder.
	err := asm.Parse(strings.NewReader(".var big \"0123456789\""), vm.NewMachine(8))
	assert.ErrorIs(err, vm.ErrOutOfMemory)

	err = asm.Parse(strings.NewReader("mov r0, %"), vm.NewMachine(0))
	assert.ErrorIs(err, ErrParseValue("%"))
}
