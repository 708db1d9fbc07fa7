//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package main

// isTerminal always returns false; use -i to force the shell.
func isTerminal(fd uintptr) bool {
	return false
}
