package emulator

import (
	"github.com/ezrec/asmvm/translate"
)

var f = translate.From

// ErrRuntime indicates the source line of a runtime error.
type ErrRuntime struct {
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return err.Err.Error()
	}
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
