package asm

import (
	"errors"

	"github.com/ezrec/asmvm/translate"
)

var f = translate.From

var (
	// Directive errors
	ErrEquateSyntax     = errors.New(f(".equ syntax"))
	ErrEquateDuplicate  = errors.New(f(".equ duplicated"))
	ErrSymbolSyntax     = errors.New(f(".const or .var syntax"))
	ErrLabelDuplicate   = errors.New(f("label duplicated"))
	ErrMacroSyntax      = errors.New(f(".macro syntax"))
	ErrMacroNesting     = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate   = errors.New(f(".macro duplicated"))
	ErrMacroLonely      = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm  = errors.New(f(".endm without .macro"))
	ErrMacroDepth       = errors.New(f("macro expansion too deep"))
	ErrDirectiveInvalid = errors.New(f("directive invalid"))

	// Lexical errors
	ErrQuoteUnterminated = errors.New(f("quote unterminated"))
	ErrBracketUnbalanced = errors.New(f("brackets unbalanced"))

	// Instruction errors
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrSyntax locates an error at a source line.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrMacro locates an error inside a macro expansion.
type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err *ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err *ErrMacro) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseValue string

func (err ErrParseValue) Error() string {
	return f("'%v' is not a value, register or symbol", string(err))
}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("'%v' is not a register", string(err))
}

type ErrParseLabel string

func (err ErrParseLabel) Error() string {
	return f("'%v' is not a label", string(err))
}

type ErrParseAddress string

func (err ErrParseAddress) Error() string {
	return f("'%v' is not an address", string(err))
}

type ErrParseString string

func (err ErrParseString) Error() string {
	return f("%v is not a valid string", string(err))
}

type ErrParseCount string

func (err ErrParseCount) Error() string {
	return f("'%v' is not a byte count", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
