package vm

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ezrec/asmvm/io"
)

// System call function codes.
const (
	SYS_FOPEN       = int32(0)  // mode, filename address -> handle
	SYS_FCLOSE      = int32(1)  // handle
	SYS_FPRINT      = int32(2)  // handle, (type, value)..., TYPE_END
	SYS_READ_STRING = int32(3)  // handle, size, destination address
	SYS_READ_INT    = int32(4)  // handle -> value
	SYS_READ_FLOAT  = int32(5)  // handle -> float bits
	SYS_FREAD       = int32(6)  // handle, size, destination address -> count
	SYS_FWRITE      = int32(7)  // handle, size, source address -> count
	SYS_FSEEK       = int32(8)  // handle, offset, whence
	SYS_NOW         = int32(9)  // -> unix seconds
	SYS_SLEEP       = int32(10) // milliseconds
)

// Parameter type tags for SYS_FPRINT.
const (
	TYPE_STRING = int32(0)
	TYPE_INT    = int32(1)
	TYPE_FLOAT  = int32(2)
	TYPE_END    = int32(3)
)

// Syscall status codes, written to the destination register.
const (
	STATUS_OK   = int32(0)
	STATUS_FAIL = int32(1)
)

var _syscall_defines = map[string]string{
	"SYS_FOPEN":       fmt.Sprintf("%d", SYS_FOPEN),
	"SYS_FCLOSE":      fmt.Sprintf("%d", SYS_FCLOSE),
	"SYS_FPRINT":      fmt.Sprintf("%d", SYS_FPRINT),
	"SYS_READ_STRING": fmt.Sprintf("%d", SYS_READ_STRING),
	"SYS_READ_INT":    fmt.Sprintf("%d", SYS_READ_INT),
	"SYS_READ_FLOAT":  fmt.Sprintf("%d", SYS_READ_FLOAT),
	"SYS_FREAD":       fmt.Sprintf("%d", SYS_FREAD),
	"SYS_FWRITE":      fmt.Sprintf("%d", SYS_FWRITE),
	"SYS_FSEEK":       fmt.Sprintf("%d", SYS_FSEEK),
	"SYS_NOW":         fmt.Sprintf("%d", SYS_NOW),
	"SYS_SLEEP":       fmt.Sprintf("%d", SYS_SLEEP),
	"TYPE_STRING":     fmt.Sprintf("%d", TYPE_STRING),
	"TYPE_INT":        fmt.Sprintf("%d", TYPE_INT),
	"TYPE_FLOAT":      fmt.Sprintf("%d", TYPE_FLOAT),
	"TYPE_END":        fmt.Sprintf("%d", TYPE_END),
}

// popN pops len(values) words into values, in order.
func (m *Machine) popN(values ...*int32) (err error) {
	for _, value := range values {
		*value, err = m.Pop()
		if err != nil {
			return
		}
	}
	return
}

// sysCall dispatches a system call. Host failures are reported in the
// status; stack and memory faults are returned as errors.
func (m *Machine) sysCall(fn int32) (status int32, err error) {
	files := m.Files

	var failed error
	defer func() {
		if failed != nil {
			status = STATUS_FAIL
			if m.Verbose {
				log.Printf("vm: syscall %d: %v", fn, failed)
			}
		}
	}()

	switch fn {
	case SYS_FOPEN:
		var mode, pointer int32
		err = m.popN(&mode, &pointer)
		if err != nil {
			return
		}
		var name string
		name, err = m.Memory.CString(uint32(pointer))
		if err != nil {
			return
		}
		var handle int32
		handle, failed = files.Open(name, io.OpenMode(mode))
		err = m.Push(WIDTH_4, uint32(handle))
	case SYS_FCLOSE:
		var handle int32
		err = m.popN(&handle)
		if err != nil {
			return
		}
		failed = files.Close(handle)
	case SYS_FPRINT:
		var handle int32
		err = m.popN(&handle)
		if err != nil {
			return
		}
		var text strings.Builder
		for {
			var tag, value int32
			err = m.popN(&tag)
			if err != nil {
				return
			}
			if tag == TYPE_END {
				break
			}
			err = m.popN(&value)
			if err != nil {
				return
			}
			switch tag {
			case TYPE_STRING:
				var str string
				str, err = m.Memory.CString(uint32(value))
				if err != nil {
					return
				}
				text.WriteString(str)
			case TYPE_INT:
				text.WriteString(strconv.Itoa(int(value)))
			case TYPE_FLOAT:
				text.WriteString(formatFloat(uint32(value)))
			default:
				failed = ErrParamType(tag)
				return
			}
		}
		failed = files.Print(handle, text.String())
	case SYS_READ_STRING:
		var handle, size, pointer int32
		err = m.popN(&handle, &size, &pointer)
		if err != nil {
			return
		}
		var line []byte
		line, failed = files.ReadLine(handle, int(size))
		if failed != nil {
			return
		}
		err = m.Memory.Store(uint32(pointer), append(line, 0))
	case SYS_READ_INT:
		var handle, value int32
		err = m.popN(&handle)
		if err != nil {
			return
		}
		value, failed = files.ReadInt(handle)
		err = m.Push(WIDTH_4, uint32(value))
	case SYS_READ_FLOAT:
		var handle int32
		err = m.popN(&handle)
		if err != nil {
			return
		}
		var value float32
		value, failed = files.ReadFloat(handle)
		err = m.Push(WIDTH_4, math.Float32bits(value))
	case SYS_FREAD:
		var handle, size, pointer int32
		err = m.popN(&handle, &size, &pointer)
		if err != nil {
			return
		}
		var data []byte
		if size < 0 {
			failed = ErrOutOfMemory
		} else {
			data, failed = files.Read(handle, int(size))
		}
		err = m.Memory.Store(uint32(pointer), data)
		if err != nil {
			return
		}
		err = m.Push(WIDTH_4, uint32(len(data)))
	case SYS_FWRITE:
		var handle, size, pointer int32
		err = m.popN(&handle, &size, &pointer)
		if err != nil {
			return
		}
		var data []byte
		data, err = m.Memory.Bytes(uint32(pointer), uint32(size))
		if err != nil {
			return
		}
		var n int
		n, failed = files.Write(handle, data)
		err = m.Push(WIDTH_4, uint32(n))
	case SYS_FSEEK:
		var handle, offset, whence int32
		err = m.popN(&handle, &offset, &whence)
		if err != nil {
			return
		}
		_, failed = files.Seek(handle, int64(offset), int(whence))
	case SYS_NOW:
		clock := m.Clock
		if clock == nil {
			clock = time.Now
		}
		err = m.Push(WIDTH_4, uint32(clock().Unix()))
	case SYS_SLEEP:
		var ms int32
		err = m.popN(&ms)
		if err != nil {
			return
		}
		if ms > 0 {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		}
	default:
		failed = ErrSysCall(fn)
	}

	return
}
