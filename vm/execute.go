package vm

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/ezrec/asmvm/io"
)

// Execute executes a single instruction at the current pc and returns
// where execution continues.
func (m *Machine) Execute(ins Instruction) (next Next, err error) {
	pc := m.Pc()
	defer func() {
		if err != nil {
			err = errors.Join(&ErrInstruction{Pc: pc, Instruction: ins}, err)
		}
	}()

	next = Continue(pc + 1)

	switch ins.Op {
	case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD, OP_AND, OP_OR, OP_XOR, OP_SHL, OP_SHR:
		var a, b, value int32
		a, err = m.Value(ins.Src1)
		if err != nil {
			return
		}
		b, err = m.Value(ins.Src2)
		if err != nil {
			return
		}
		value, err = doAlu(ins.Op, a, b)
		if err != nil {
			return
		}
		m.Register[ins.Dst] = value
	case OP_NOT:
		m.Register[ins.Dst] = ^m.Register[ins.Reg]
	case OP_JMP:
		next, err = m.jumpTarget(ins.Label)
	case OP_CALL:
		if m.CallStack.Full() {
			err = ErrCallStackFull
			return
		}
		next, err = m.jumpTarget(ins.Label)
		if err != nil {
			return
		}
		m.CallStack.Push(uint32(pc))
	case OP_JZ, OP_JNZ:
		zero := m.Register[ins.Reg] == 0
		if zero == (ins.Op == OP_JZ) {
			next, err = m.jumpTarget(ins.Label)
		}
	case OP_RET:
		ret, ok := m.CallStack.Pop()
		if !ok {
			err = ErrCallStackEmpty
			return
		}
		next = Continue(int(ret) + 1)
	case OP_MOV:
		var value int32
		value, err = m.Value(ins.Src1)
		if err != nil {
			return
		}
		m.Register[ins.Dst] = value
	case OP_PUSH:
		var value int32
		value, err = m.Value(ins.Src1)
		if err != nil {
			return
		}
		err = m.Push(WIDTH_4, uint32(value))
	case OP_POP:
		var value int32
		value, err = m.Pop()
		if err != nil {
			return
		}
		if ins.Store {
			m.Register[ins.Dst] = value
		}
	case OP_LD1, OP_LD2, OP_LD4:
		var address, value uint32
		address, err = m.Address(ins.Address)
		if err != nil {
			return
		}
		value, err = m.Memory.Read(address, ins.Op.Width())
		if err != nil {
			return
		}
		m.Register[ins.Dst] = int32(value)
	case OP_ST1, OP_ST2, OP_ST4:
		var address uint32
		var value int32
		value, err = m.Value(ins.Src1)
		if err != nil {
			return
		}
		address, err = m.Address(ins.Address)
		if err != nil {
			return
		}
		err = m.Memory.Write(address, ins.Op.Width(), uint32(value))
	case OP_PUSHN:
		st := m.St()
		if uint64(st)+uint64(ins.Bytes) > uint64(m.Memory.Size()) {
			err = &ErrAddress{Address: st, Size: ins.Bytes, Limit: m.Memory.Size()}
			return
		}
		m.Register[REG_ST] = int32(st + ins.Bytes)
	case OP_POPN:
		st := m.St()
		if st < m.StaticEnd || st-m.StaticEnd < ins.Bytes {
			err = ErrStackUnderflow
			return
		}
		m.Register[REG_ST] = int32(st - ins.Bytes)
	case OP_INC:
		m.Register[ins.Reg]++
	case OP_DEC:
		m.Register[ins.Reg]--
	case OP_PRINT:
		var text strings.Builder
		for _, item := range ins.Items {
			var str string
			str, err = m.Render(item)
			if err != nil {
				return
			}
			text.WriteString(str)
		}
		err = m.Files.Print(io.HANDLE_STDOUT, text.String())
	case OP_FPRINT:
		err = m.Files.Print(io.HANDLE_STDOUT, formatFloat(uint32(m.Register[ins.Reg])))
	case OP_EXIT:
		var code int32
		code, err = m.Value(ins.Src1)
		if err != nil {
			return
		}
		if code < 0 {
			if m.Verbose {
				log.Printf("vm: abort with code %d", code)
			}
			err = ErrAbort(code)
			return
		}
		next = Halt(code)
	case OP_SYSCALL:
		var fn, status int32
		fn, err = m.Value(ins.Src1)
		if err != nil {
			return
		}
		status, err = m.sysCall(fn)
		if err != nil {
			return
		}
		m.Register[ins.Dst] = status
	default:
		err = ErrOpcodeInvalid
	}

	return
}

// jumpTarget resolves a label to the program index to continue at.
func (m *Machine) jumpTarget(label string) (next Next, err error) {
	target, err := m.symbolInteger(label)
	if err != nil {
		return
	}

	if target < 0 {
		err = ErrPc(target)
		return
	}

	next = Continue(int(target))
	return
}

// doAlu performs an arithmetic or bitwise operation. Shift counts are
// taken as unsigned: counts of 32 or more shift every bit out, and shr
// is arithmetic.
func doAlu(op Opcode, a, b int32) (value int32, err error) {
	switch op {
	case OP_ADD:
		value = a + b
	case OP_SUB:
		value = a - b
	case OP_MUL:
		value = a * b
	case OP_DIV:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		value = a / b
	case OP_MOD:
		if b == 0 {
			err = ErrDivideByZero
			return
		}
		value = a % b
	case OP_AND:
		value = a & b
	case OP_OR:
		value = a | b
	case OP_XOR:
		value = a ^ b
	case OP_SHL:
		value = a << uint32(b)
	case OP_SHR:
		value = a >> uint32(b)
	default:
		err = ErrOpcodeInvalid
	}

	return
}

// formatFloat renders the float32 bit pattern like C printf "%f".
func formatFloat(bits uint32) string {
	value := float64(math.Float32frombits(bits))
	switch {
	case math.IsNaN(value):
		return "nan"
	case math.IsInf(value, 1):
		return "inf"
	case math.IsInf(value, -1):
		return "-inf"
	}
	return fmt.Sprintf("%f", value)
}
