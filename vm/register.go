package vm

import (
	"strconv"
)

const (
	REGISTER_GENERAL = 8  // General purpose registers r0-r7.
	REGISTER_COUNT   = 10 // All registers.

	REG_ST = 8 // Stack pointer.
	REG_PC = 9 // Program counter.
)

var registerNames = [REGISTER_COUNT]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7", "st", "pc",
}

// Registers is the register file.
type Registers [REGISTER_COUNT]int32

// RegisterName returns the assembler name of a register index.
func RegisterName(index int) string {
	if !ValidRegister(index) {
		return "r?" + strconv.Itoa(index)
	}
	return registerNames[index]
}

// RegisterIndex looks up a register by assembler name.
func RegisterIndex(name string) (index int, ok bool) {
	for n, reg := range registerNames {
		if reg == name {
			return n, true
		}
	}
	return
}

// ValidRegister returns true if index names a register.
func ValidRegister(index int) bool {
	return index >= 0 && index < REGISTER_COUNT
}
