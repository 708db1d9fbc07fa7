// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/asmvm/vm"
)

const (
	MACRO_DEPTH_LIMIT = 16 // Maximum nesting of macro expansions.
)

// Builder receives the assembled program. *vm.Machine is a Builder.
type Builder interface {
	AddSymbol(name string, sym vm.Symbol) error
	AddInstruction(ins vm.Instruction) error
	AddLabeledInstruction(label string, ins vm.Instruction) error
	Len() int
}

var _ Builder = (*vm.Machine)(nil)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for the asmvm machine.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to program indexes.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
	Constant  map[string]vm.Value // Map of .const values.

	builder   Builder  // Program under construction.
	pending   []string // Labels waiting for their instruction.
	expansion int      // Count of macro expansions, for '@' names.
	depth     int      // Current macro nesting.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// Parse assembles an input stream into a builder.
func (asm *Assembler) Parse(input io.Reader, b Builder) (err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.builder = b
	asm.pending = nil
	asm.expansion = 0
	asm.depth = 0
	asm.Label = make(map[string]int)
	asm.Macro = make(map[string](*Macro))
	asm.Constant = make(map[string]vm.Value)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		line = scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, line)
		}

		var words []string
		words, err = tokenize(line)
		if err != nil {
			return
		}

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 || !isIdentifier(words[1]) {
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
				Args:   words[2:],
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

		err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Labels at the end of the text mark the end of the program.
	for _, label := range asm.pending {
		err = b.AddSymbol(label, vm.Label(b.Len()))
		if err != nil {
			return
		}
	}
	asm.pending = nil

	return
}

// parseLine assembles a single line of text.
func (asm *Assembler) parseLine(line string, lineno int) (err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	words, err := tokenize(line)
	if err != nil {
		return
	}

	for n, word := range words {
		if isString(word) {
			continue
		}
		word = expandCharacters(word)
		words[n], err = asm.expandExpressions(word)
		if err != nil {
			return
		}
	}

	// Labels
	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !isIdentifier(label) {
			err = ErrParseLabel(label)
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = asm.builder.Len()
		asm.pending = append(asm.pending, label)
		words = words[1:]
	}

	if len(words) == 0 {
		return
	}

	switch words[0] {
	case ".equ":
		// .equ CONST VALUE
		if len(words) != 3 || !isIdentifier(words[1]) {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		return
	case ".const", ".var":
		// .const NAME VALUE, .var NAME VALUE
		if len(words) != 3 || !isIdentifier(words[1]) {
			err = ErrSymbolSyntax
			return
		}
		var value vm.Value
		value, err = asm.literal(words[2])
		if err != nil {
			return
		}
		sym := vm.Variable(value)
		if words[0] == ".const" {
			sym = vm.Constant(value)
			asm.Constant[words[1]] = value
		}
		if asm.Verbose {
			log.Printf("%v: %v %v = %v", lineno, words[0], words[1], value)
		}
		err = asm.builder.AddSymbol(words[1], sym)
		return
	}

	if strings.HasPrefix(words[0], ".") {
		err = ErrDirectiveInvalid
		return
	}

	// Macro expansion
	macro, ok := asm.Macro[words[0]]
	if ok {
		err = asm.expandMacro(words[0], macro, words[1:])
		return
	}

	var ins vm.Instruction
	ins, err = asm.parseInstruction(words)
	if err != nil {
		return
	}
	ins.LineNo = lineno

	err = asm.emit(ins)
	return
}

// expandMacro assembles the lines of a macro, with its arguments bound as
// equates. '@' in the macro text is replaced by a prefix unique to this
// expansion.
func (asm *Assembler) expandMacro(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}

	if asm.depth >= MACRO_DEPTH_LIMIT {
		err = ErrMacroDepth
		return
	}
	asm.depth++
	defer func() { asm.depth-- }()

	asm.expansion++
	prefix := fmt.Sprintf("%v_%v_", name, asm.expansion)

	// Turn args into equs
	old_equate := maps.Clone(asm.Equate)
	for n, arg := range macro.Args {
		asm.Equate[arg] = asm.equate(args[n])
	}
	defer func() { asm.Equate = old_equate }()

	for n, line := range macro.Lines {
		lineno := macro.LineNo + n

		line = mangle(line, prefix)
		err = asm.parseLine(line, lineno)
		if err != nil {
			err = &ErrMacro{Macro: name, Line: lineno, Err: err}
			return
		}
	}

	return
}

// emit appends an instruction, binding any pending labels to it.
func (asm *Assembler) emit(ins vm.Instruction) (err error) {
	if len(asm.pending) == 0 {
		return asm.builder.AddInstruction(ins)
	}

	for _, label := range asm.pending[1:] {
		err = asm.builder.AddSymbol(label, vm.Label(asm.builder.Len()))
		if err != nil {
			return
		}
	}

	err = asm.builder.AddLabeledInstruction(asm.pending[0], ins)
	asm.pending = asm.pending[:0]
	return
}

// equate returns the value of a word after equate substitution.
func (asm *Assembler) equate(word string) string {
	value, ok := asm.Equate[word]
	if ok {
		return value
	}
	return word
}

// integer resolves a word to an assembly time integer: a literal, an
// integer equate, or an integer .const.
func (asm *Assembler) integer(word string) (value int32, ok bool) {
	word = asm.equate(word)
	if isNumber(word) {
		var err error
		value, err = parseInteger(word)
		ok = err == nil
		return
	}

	constant, ok := asm.Constant[word]
	if ok && constant.Type == vm.VALUE_INTEGER {
		value = constant.Int
		return
	}

	ok = false
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int32, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key := range asm.Equate {
		value, ok := asm.integer(key)
		if !ok {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value))
	}
	for key, constant := range asm.Constant {
		if constant.Type == vm.VALUE_INTEGER {
			pred[key] = starlark.MakeInt(int(constant.Int))
		}
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
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 < -0x80000000 || st_int64 > 0xffffffff {
		err = ErrParseExpression(expr)
		return
	}
	value = int32(uint32(st_int64))
	return
}

// expandExpressions replaces every $(...) in a word by its value.
func (asm *Assembler) expandExpressions(word string) (expanded string, err error) {
	expanded = reExpression.ReplaceAllStringFunc(word, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return strconv.Itoa(int(value))
	})
	return
}

// text unquotes a string literal.
func (asm *Assembler) text(word string) (text string, err error) {
	text, err = strconv.Unquote(word)
	if err != nil {
		err = ErrParseString(word)
	}
	return
}

// literal parses the value of a .const or .var.
func (asm *Assembler) literal(word string) (value vm.Value, err error) {
	word = asm.equate(word)
	if isString(word) {
		var text string
		text, err = asm.text(word)
		value = vm.Text(text)
		return
	}

	constant, ok := asm.Constant[word]
	if ok {
		value = constant
		return
	}

	number, err := parseInteger(word)
	if err != nil {
		return
	}

	value = vm.Integer(number)
	return
}

// register parses a register name.
func (asm *Assembler) register(word string) (index int, err error) {
	index, ok := vm.RegisterIndex(asm.equate(word))
	if !ok {
		err = ErrParseRegister(word)
	}
	return
}

// label parses a jump target.
func (asm *Assembler) label(word string) (label string, err error) {
	label = asm.equate(word)
	if !isIdentifier(label) {
		err = ErrParseLabel(word)
	}
	return
}

// source parses an operand: a register, an integer or a symbol name.
func (asm *Assembler) source(word string) (src vm.Source, err error) {
	word = asm.equate(word)

	if index, ok := vm.RegisterIndex(word); ok {
		src = vm.Reg(index)
		return
	}

	if isNumber(word) {
		var value int32
		value, err = parseInteger(word)
		src = vm.Imm(value)
		return
	}

	if !isIdentifier(word) {
		err = ErrParseValue(word)
		return
	}

	src = vm.Sym(word)
	return
}

// address parses a [base] or [base + offset] memory operand.
func (asm *Assembler) address(word string) (addr vm.Address, err error) {
	word = asm.equate(word)
	if len(word) < 3 || word[0] != '[' || word[len(word)-1] != ']' {
		err = ErrParseAddress(word)
		return
	}

	parts := strings.SplitN(word[1:len(word)-1], "+", 2)
	base := asm.equate(strings.TrimSpace(parts[0]))

	index, is_reg := vm.RegisterIndex(base)
	switch {
	case is_reg:
		addr = vm.AtReg(index)
	case isNumber(base):
		var value int32
		value, err = parseInteger(base)
		if err != nil {
			return
		}
		addr = vm.AtImm(uint32(value))
	case isIdentifier(base):
		addr = vm.AtSym(base)
	default:
		err = ErrParseAddress(word)
		return
	}

	if len(parts) == 2 {
		var offset vm.Source
		offset, err = asm.source(strings.TrimSpace(parts[1]))
		if err != nil {
			return
		}
		addr = addr.Plus(offset)
	}

	return
}

// count parses the byte count of pushn and popn.
func (asm *Assembler) count(word string) (bytes uint32, err error) {
	value, ok := asm.integer(word)
	if !ok || value < 0 {
		err = ErrParseCount(word)
		return
	}

	bytes = uint32(value)
	return
}

// printable parses a print operand.
func (asm *Assembler) printable(word string) (item vm.Printable, err error) {
	word = asm.equate(word)
	if isString(word) {
		var text string
		text, err = asm.text(word)
		item = vm.PrintText(text)
		return
	}

	src, err := asm.source(word)
	item = vm.PrintSource(src)
	return
}

// arity checks the number of operands.
func arity(args []string, count int) (err error) {
	switch {
	case len(args) < count:
		err = ErrOpcodeValueMissing
	case len(args) > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// parseInstruction parses the words of an instruction.
func (asm *Assembler) parseInstruction(words []string) (ins vm.Instruction, err error) {
	mnemonic := asm.equate(words[0])
	args := words[1:]

	op, ok := vm.OpcodeOf(strings.ToLower(mnemonic))
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	switch {
	case op.Ternary():
		// op SRC1, SRC2, DST
		err = arity(args, 3)
		if err != nil {
			return
		}
		var src1, src2 vm.Source
		var dst int
		src1, err = asm.source(args[0])
		if err != nil {
			return
		}
		src2, err = asm.source(args[1])
		if err != nil {
			return
		}
		dst, err = asm.register(args[2])
		if err != nil {
			return
		}
		ins = vm.MakeTernary(op, src1, src2, dst)
	case op == vm.OP_NOT:
		// not REG, DST
		err = arity(args, 2)
		if err != nil {
			return
		}
		var reg, dst int
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		dst, err = asm.register(args[1])
		if err != nil {
			return
		}
		ins = vm.MakeNot(reg, dst)
	case op == vm.OP_JMP, op == vm.OP_CALL:
		// jmp LABEL
		err = arity(args, 1)
		if err != nil {
			return
		}
		var label string
		label, err = asm.label(args[0])
		if err != nil {
			return
		}
		ins = vm.MakeJump(op, label)
	case op == vm.OP_JZ, op == vm.OP_JNZ:
		// jz REG, LABEL
		err = arity(args, 2)
		if err != nil {
			return
		}
		var reg int
		var label string
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		label, err = asm.label(args[1])
		if err != nil {
			return
		}
		ins = vm.MakeBranch(op, reg, label)
	case op == vm.OP_RET:
		err = arity(args, 0)
		if err != nil {
			return
		}
		ins = vm.MakeRet()
	case op == vm.OP_MOV:
		// mov DST, SRC
		err = arity(args, 2)
		if err != nil {
			return
		}
		var dst int
		var src vm.Source
		dst, err = asm.register(args[0])
		if err != nil {
			return
		}
		src, err = asm.source(args[1])
		if err != nil {
			return
		}
		ins = vm.MakeMov(dst, src)
	case op == vm.OP_PUSH, op == vm.OP_EXIT:
		// push SRC
		err = arity(args, 1)
		if err != nil {
			return
		}
		var src vm.Source
		src, err = asm.source(args[0])
		if err != nil {
			return
		}
		if op == vm.OP_PUSH {
			ins = vm.MakePush(src)
		} else {
			ins = vm.MakeExit(src)
		}
	case op == vm.OP_POP:
		// pop [DST]
		if len(args) == 0 {
			ins = vm.MakePop()
			return
		}
		err = arity(args, 1)
		if err != nil {
			return
		}
		var dst int
		dst, err = asm.register(args[0])
		if err != nil {
			return
		}
		ins = vm.MakePopTo(dst)
	case op == vm.OP_LD1, op == vm.OP_LD2, op == vm.OP_LD4:
		// ld DST, [ADDRESS]
		err = arity(args, 2)
		if err != nil {
			return
		}
		var dst int
		var addr vm.Address
		dst, err = asm.register(args[0])
		if err != nil {
			return
		}
		addr, err = asm.address(args[1])
		if err != nil {
			return
		}
		ins = vm.MakeLoad(op, dst, addr)
	case op == vm.OP_ST1, op == vm.OP_ST2, op == vm.OP_ST4:
		// st SRC, [ADDRESS]
		err = arity(args, 2)
		if err != nil {
			return
		}
		var src vm.Source
		var addr vm.Address
		src, err = asm.source(args[0])
		if err != nil {
			return
		}
		addr, err = asm.address(args[1])
		if err != nil {
			return
		}
		ins = vm.MakeStore(op, src, addr)
	case op == vm.OP_PUSHN, op == vm.OP_POPN:
		// pushn BYTES
		err = arity(args, 1)
		if err != nil {
			return
		}
		var bytes uint32
		bytes, err = asm.count(args[0])
		if err != nil {
			return
		}
		ins = vm.MakeStackAdjust(op, bytes)
	case op == vm.OP_INC, op == vm.OP_DEC, op == vm.OP_FPRINT:
		// inc REG
		err = arity(args, 1)
		if err != nil {
			return
		}
		var reg int
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		if op == vm.OP_FPRINT {
			ins = vm.MakeFprint(reg)
		} else {
			ins = vm.MakeStep(op, reg)
		}
	case op == vm.OP_PRINT:
		// print ITEM...
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		items := make([]vm.Printable, len(args))
		for n, arg := range args {
			items[n], err = asm.printable(arg)
			if err != nil {
				return
			}
		}
		ins = vm.MakePrint(items...)
	case op == vm.OP_SYSCALL:
		// syscall FN, DST
		err = arity(args, 2)
		if err != nil {
			return
		}
		var fn vm.Source
		var dst int
		fn, err = asm.source(args[0])
		if err != nil {
			return
		}
		dst, err = asm.register(args[1])
		if err != nil {
			return
		}
		ins = vm.MakeSysCall(fn, dst)
	default:
		err = ErrInstructionInvalid
	}

	return
}
