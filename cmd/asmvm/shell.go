package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/ezrec/asmvm/emulator"
)

const (
	SHELL_PROMPT  = "asmvm> "
	SHELL_HISTORY = ".asmvm_history"
)

// shell accumulates source lines and runs them on request.
type shell struct {
	Verbose bool       // Verbose emulator.
	Size    uint32     // Memory size of each new emulator.
	Defines defineFlag // Predefines for each new emulator.

	lines []string
	step  *emulator.Emulator // Emulator for :step, nil when idle.
}

// load assembles the accumulated lines into a new emulator.
func (sh *shell) load(out io.Writer) (emu *emulator.Emulator, err error) {
	emu = emulator.NewEmulator(sh.Size)
	emu.Verbose = sh.Verbose
	emu.Files.Stdout = out
	for _, item := range sh.Defines {
		emu.Define(item[0], item[1])
	}

	err = emu.Load(strings.NewReader(strings.Join(sh.lines, "\n")))
	if err != nil {
		emu = nil
	}
	return
}

func (sh *shell) stop() {
	if sh.step != nil {
		sh.step.Close()
		sh.step = nil
	}
}

// Handle processes one line of shell input, returning true on :quit.
func (sh *shell) Handle(line string, out io.Writer) (quit bool) {
	command := strings.TrimSpace(line)
	if !strings.HasPrefix(command, ":") {
		sh.stop()
		sh.lines = append(sh.lines, line)
		return
	}

	switch strings.ToLower(command) {
	case ":quit":
		sh.stop()
		quit = true
	case ":clear":
		sh.stop()
		sh.lines = nil
	case ":list":
		for n, text := range sh.lines {
			fmt.Fprintf(out, "%4d  %s\n", n+1, text)
		}
	case ":run":
		sh.stop()
		emu, err := sh.load(out)
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		code, err := emu.Run()
		emu.Close()
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		fmt.Fprintf(out, "exit %d\n", code)
	case ":step":
		if sh.step == nil {
			emu, err := sh.load(out)
			if err != nil {
				fmt.Fprintln(out, err)
				return
			}
			emu.Reset()
			sh.step = emu
		}
		if ins, ok := sh.step.Instruction(); ok {
			fmt.Fprintf(out, "%4d  %v\n", ins.LineNo, ins)
		}
		done, err := sh.step.Tick()
		if err != nil {
			fmt.Fprintln(out, err)
			sh.stop()
			return
		}
		if done {
			fmt.Fprintf(out, "exit %d\n", sh.step.ExitCode)
			sh.stop()
		}
	case ":regs":
		if sh.step == nil {
			fmt.Fprintln(out, "not stepping")
			return
		}
		fmt.Fprint(out, sh.step.String())
	default:
		fmt.Fprintln(out, "commands: :run :step :regs :list :clear :quit")
	}

	return
}

// Interact runs the shell on the terminal until :quit or end of input.
func (sh *shell) Interact() (err error) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	history := filepath.Join(home, SHELL_HISTORY)
	if inf, err := os.Open(history); err == nil {
		_, _ = ln.ReadHistory(inf)
		inf.Close()
	}
	defer func() {
		if ouf, err := os.Create(history); err == nil {
			_, _ = ln.WriteHistory(ouf)
			ouf.Close()
		}
	}()

	defer sh.stop()

	for {
		var line string
		line, err = ln.Prompt(SHELL_PROMPT)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			err = nil
			return
		}
		if err != nil {
			return
		}

		if len(strings.TrimSpace(line)) != 0 {
			ln.AppendHistory(line)
		}

		if sh.Handle(line, os.Stdout) {
			return
		}
	}
}
