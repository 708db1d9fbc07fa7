package vm

import (
	"strconv"
)

// SourceKind selects how a Source is evaluated.
type SourceKind int

const (
	SRC_IMMEDIATE = SourceKind(0) // Literal value.
	SRC_REGISTER  = SourceKind(1) // Register contents.
	SRC_SYMBOL    = SourceKind(2) // Integer payload of a symbol, the address of a variable.
)

// Source is an instruction operand evaluated each time the instruction runs.
type Source struct {
	Kind     SourceKind
	Value    int32
	Register int
	Name     string
}

// Imm creates an immediate source.
func Imm(value int32) Source {
	return Source{Kind: SRC_IMMEDIATE, Value: value}
}

// Reg creates a register source.
func Reg(index int) Source {
	return Source{Kind: SRC_REGISTER, Register: index}
}

// Sym creates a symbol source.
func Sym(name string) Source {
	return Source{Kind: SRC_SYMBOL, Name: name}
}

func (src Source) valid() bool {
	return src.Kind != SRC_REGISTER || ValidRegister(src.Register)
}

func (src Source) String() string {
	switch src.Kind {
	case SRC_REGISTER:
		return RegisterName(src.Register)
	case SRC_SYMBOL:
		return src.Name
	}
	return strconv.Itoa(int(src.Value))
}

// BaseKind selects how a BaseAddress is evaluated.
type BaseKind int

const (
	BASE_IMMEDIATE = BaseKind(0) // Literal address.
	BASE_REGISTER  = BaseKind(1) // Register contents.
	BASE_SYMBOL    = BaseKind(2) // Integer payload of a symbol.
)

// BaseAddress is the base of a memory operand.
type BaseAddress struct {
	Kind     BaseKind
	Address  uint32
	Register int
	Name     string
}

func (base BaseAddress) String() string {
	switch base.Kind {
	case BASE_REGISTER:
		return RegisterName(base.Register)
	case BASE_SYMBOL:
		return base.Name
	}
	return "0x" + strconv.FormatUint(uint64(base.Address), 16)
}

// Address is a base plus an optional offset.
type Address struct {
	Base   BaseAddress
	Offset *Source
}

// AtImm creates the address of a literal location.
func AtImm(address uint32) Address {
	return Address{Base: BaseAddress{Kind: BASE_IMMEDIATE, Address: address}}
}

// AtReg creates the address held in a register.
func AtReg(index int) Address {
	return Address{Base: BaseAddress{Kind: BASE_REGISTER, Register: index}}
}

// AtSym creates the address bound to a symbol.
func AtSym(name string) Address {
	return Address{Base: BaseAddress{Kind: BASE_SYMBOL, Name: name}}
}

// Plus returns the address offset by a source.
func (addr Address) Plus(offset Source) Address {
	addr.Offset = &offset
	return addr
}

func (addr Address) valid() bool {
	if addr.Base.Kind == BASE_REGISTER && !ValidRegister(addr.Base.Register) {
		return false
	}
	return addr.Offset == nil || addr.Offset.valid()
}

func (addr Address) String() string {
	if addr.Offset == nil {
		return "[" + addr.Base.String() + "]"
	}
	return "[" + addr.Base.String() + " + " + addr.Offset.String() + "]"
}

// Printable is an operand of print: either literal text or a source.
type Printable struct {
	IsText bool
	Text   string
	Source Source
}

// PrintText creates a literal text item.
func PrintText(text string) Printable {
	return Printable{IsText: true, Text: text}
}

// PrintSource creates an item printed as a decimal integer.
func PrintSource(src Source) Printable {
	return Printable{Source: src}
}

func (item Printable) String() string {
	if item.IsText {
		return strconv.Quote(item.Text)
	}
	return item.Source.String()
}

// Value evaluates a source against the machine state.
func (m *Machine) Value(src Source) (value int32, err error) {
	switch src.Kind {
	case SRC_IMMEDIATE:
		value = src.Value
	case SRC_REGISTER:
		value = m.Register[src.Register]
	case SRC_SYMBOL:
		value, err = m.symbolInteger(src.Name)
	default:
		err = ErrOpcodeInvalid
	}

	return
}

// BaseAddress evaluates a base address.
func (m *Machine) BaseAddress(base BaseAddress) (address uint32, err error) {
	switch base.Kind {
	case BASE_IMMEDIATE:
		address = base.Address
	case BASE_REGISTER:
		address = uint32(m.Register[base.Register])
	case BASE_SYMBOL:
		var value int32
		value, err = m.symbolInteger(base.Name)
		address = uint32(value)
	default:
		err = ErrOpcodeInvalid
	}

	return
}

// Address resolves base plus offset.
func (m *Machine) Address(addr Address) (address uint32, err error) {
	address, err = m.BaseAddress(addr.Base)
	if err != nil {
		return
	}

	if addr.Offset != nil {
		var offset int32
		offset, err = m.Value(*addr.Offset)
		if err != nil {
			return
		}
		address += uint32(offset)
	}

	return
}

// Render returns the printed form of an item.
func (m *Machine) Render(item Printable) (text string, err error) {
	if item.IsText {
		text = item.Text
		return
	}

	value, err := m.Value(item.Source)
	if err != nil {
		return
	}

	text = strconv.Itoa(int(value))
	return
}
