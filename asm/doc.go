// Package asm implements the single pass macro assembler for the asmvm
// machine.
//
// Source text is read a line at a time. Each line may carry labels, a
// directive (.equ, .const, .var, .macro, .endm) or one instruction. The
// assembler does not own a machine: it drives any Builder, normally a
// *vm.Machine, appending symbols and instructions as they are parsed.
// Symbols are resolved by the machine when the program runs.
package asm
