// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// asmvm assembles and runs register machine programs.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/ezrec/asmvm/emulator"
)

func main() {
	var size uint
	var interactive bool
	var verbose bool
	var defines defineFlag

	flag.UintVar(&size, "m", 0, "Memory size in bytes, 0 for the default")
	flag.BoolVar(&interactive, "i", false, "Interactive shell")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.Var(&defines, "D", "Predefine NAME=VALUE, may be repeated")

	flag.Parse()

	if flag.NArg() > 1 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args()[1:])
	}

	if flag.NArg() == 0 && (interactive || isTerminal(os.Stdin.Fd())) {
		sh := &shell{
			Verbose: verbose,
			Size:    uint32(size),
			Defines: defines,
		}
		if err := sh.Interact(); err != nil {
			log.Fatal(err)
		}
		return
	}

	emu := emulator.NewEmulator(uint32(size))
	emu.Verbose = verbose
	for _, item := range defines {
		emu.Define(item[0], item[1])
	}

	source := "-"
	input := os.Stdin
	if flag.NArg() == 1 {
		source = flag.Arg(0)
		inf, err := os.Open(source)
		if err != nil {
			log.Fatalf("%v: %v", source, err)
		}
		defer inf.Close()
		input = inf
	}

	err := emu.Load(input)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	code, err := emu.Run()
	emu.Close()
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	os.Exit(code)
}
