package vm

import (
	"strconv"
)

// Kind is the kind of a symbol.
type Kind int

const (
	KIND_VARIABLE = Kind(0) // var
	KIND_LABEL    = Kind(1) // label
	KIND_CONSTANT = Kind(2) // const
)

var kindNames = [...]string{"var", "label", "const"}

func (kind Kind) String() string {
	if kind < 0 || int(kind) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(kind)) + ")"
	}
	return kindNames[kind]
}

// ValueType is the payload type of a symbol.
type ValueType int

const (
	VALUE_INTEGER = ValueType(0)
	VALUE_TEXT    = ValueType(1)
)

// Value is an integer or text payload.
type Value struct {
	Type ValueType
	Int  int32
	Text string
}

// Integer creates an integer value.
func Integer(value int32) Value {
	return Value{Type: VALUE_INTEGER, Int: value}
}

// Text creates a text value.
func Text(text string) Value {
	return Value{Type: VALUE_TEXT, Text: text}
}

func (value Value) String() string {
	if value.Type == VALUE_TEXT {
		return strconv.Quote(value.Text)
	}
	return strconv.Itoa(int(value.Int))
}

// Symbol is an entry of the symbol table.
type Symbol struct {
	Kind  Kind
	Value Value
}

// Variable creates a variable symbol. When added to a machine the value is
// copied into static memory and the symbol is rebound to its address.
func Variable(value Value) Symbol {
	return Symbol{Kind: KIND_VARIABLE, Value: value}
}

// Constant creates a constant symbol.
func Constant(value Value) Symbol {
	return Symbol{Kind: KIND_CONSTANT, Value: value}
}

// Label creates a label symbol for a program index.
func Label(index int) Symbol {
	return Symbol{Kind: KIND_LABEL, Value: Integer(int32(index))}
}

// Integer returns the integer payload of the symbol.
func (sym Symbol) Integer() (value int32, ok bool) {
	if sym.Value.Type != VALUE_INTEGER {
		return
	}
	return sym.Value.Int, true
}

func (sym Symbol) String() string {
	return sym.Kind.String() + " " + sym.Value.String()
}
