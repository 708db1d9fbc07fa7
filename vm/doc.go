// Package vm implements a small register based virtual machine.
//
// The machine executes a linear program of instructions against a flat
// byte addressable memory, ten 32-bit registers (r0-r7, the stack
// pointer st and the program counter pc), a symbol table of variables,
// labels and constants, and a call stack of return addresses.
//
// Memory holds a static region, filled from variable symbols while the
// program is assembled, followed by the data stack that grows upward
// from the end of the static data.
//
// A front end builds the machine with AddSymbol, AddInstruction and
// AddLabeledInstruction, and then calls Run.
package vm
