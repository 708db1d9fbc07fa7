package io

import (
	"fmt"
	"iter"
	"maps"
	"os"
)

// OpenMode is the syscall bitmask selecting how a file is opened.
type OpenMode int32

const (
	MODE_READ   = OpenMode(1 << 0)
	MODE_WRITE  = OpenMode(1 << 1)
	MODE_CREATE = OpenMode(1 << 2)
	MODE_BINARY = OpenMode(1 << 3)
	MODE_APPEND = OpenMode(1 << 4)
	MODE_MASK   = OpenMode(0x1f)
)

var _mode_defines = map[string]string{
	"MODE_READ":   fmt.Sprintf("%d", MODE_READ),
	"MODE_WRITE":  fmt.Sprintf("%d", MODE_WRITE),
	"MODE_CREATE": fmt.Sprintf("%d", MODE_CREATE),
	"MODE_BINARY": fmt.Sprintf("%d", MODE_BINARY),
	"MODE_APPEND": fmt.Sprintf("%d", MODE_APPEND),
}

// modeRule maps an exact mode bitmask to a C stdio mode string.
type modeRule struct {
	mode OpenMode
	str  string
}

// Checked in order; the first rule wins.
var modeRules = []modeRule{
	{MODE_BINARY | MODE_CREATE | MODE_READ | MODE_WRITE, "wb+"},
	{MODE_CREATE | MODE_READ | MODE_WRITE, "w+"},
	{MODE_READ | MODE_WRITE, "r+"},
	{MODE_READ, "r"},
	{MODE_CREATE | MODE_WRITE, "w"},
	{MODE_BINARY | MODE_READ | MODE_WRITE, "rb+"},
	{MODE_BINARY | MODE_READ, "rb"},
	{MODE_BINARY | MODE_WRITE, "wb"},
	{MODE_BINARY | MODE_APPEND, "ab"},
	{MODE_APPEND, "a"},
	{MODE_BINARY | MODE_READ | MODE_APPEND, "ab+"},
	{MODE_READ | MODE_APPEND, "a+"},
}

// String returns the C stdio mode string for the bitmask, or "" if the
// combination has no mapping.
func (mode OpenMode) String() string {
	for _, rule := range modeRules {
		if mode&MODE_MASK == rule.mode {
			return rule.str
		}
	}

	return ""
}

// Flags returns the os.OpenFile flags for the mode.
func (mode OpenMode) Flags() (flag int, err error) {
	str := mode.String()
	if len(str) == 0 {
		err = ErrModeInvalid
		return
	}

	// Binary has no meaning on the host.
	plus := str[len(str)-1] == '+'
	switch str[0] {
	case 'r':
		flag = os.O_RDONLY
		if plus {
			flag = os.O_RDWR
		}
	case 'w':
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if plus {
			flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
		}
	case 'a':
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		if plus {
			flag = os.O_RDWR | os.O_CREATE | os.O_APPEND
		}
	}

	return
}

// ModeDefines returns the assembler equates for the mode bits.
func ModeDefines() iter.Seq2[string, string] {
	return maps.All(_mode_defines)
}
