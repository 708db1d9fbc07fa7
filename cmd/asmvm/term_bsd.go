//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package main

import (
	"golang.org/x/sys/unix"
)

// isTerminal returns true if fd refers to a terminal.
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TIOCGETA)
	return err == nil
}
