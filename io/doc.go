// Package io provides the host file table behind the machine's file
// syscalls. Programs see files as small positive integer handles.
// Handle 0 is never valid and reports failure, and handles 1, 2 and 3
// are pre-registered as standard input, output and error.
package io
