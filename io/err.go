package io

import (
	"errors"

	"github.com/ezrec/asmvm/translate"
)

var f = translate.From

var (
	// File table errors
	ErrHandleInvalid = errors.New(f("file handle invalid"))
	ErrModeInvalid   = errors.New(f("file mode invalid"))
	ErrNotReadable   = errors.New(f("file not readable"))
	ErrNotWritable   = errors.New(f("file not writable"))
	ErrNotSeekable   = errors.New(f("file not seekable"))
	ErrTableFull     = errors.New(f("file table full"))
)

// ErrOpen reports a host open failure for a named file.
type ErrOpen struct {
	Name string
	Err  error
}

func (err *ErrOpen) Error() string {
	return f("open '%v' %v", err.Name, err.Err)
}

func (err *ErrOpen) Unwrap() error {
	return err.Err
}
