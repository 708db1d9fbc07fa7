package vm

import (
	"bytes"
	"encoding/binary"
)

const (
	DEFAULT_MEMORY_SIZE = 2048 // Default memory size in bytes.
)

// Width is the size in bytes of a memory access.
type Width uint32

const (
	WIDTH_1 = Width(1)
	WIDTH_2 = Width(2)
	WIDTH_4 = Width(4)
)

// Memory is the flat, bounds checked byte buffer of the machine.
// Multi-byte values are little endian.
type Memory struct {
	Data []byte
}

// Size returns the memory size in bytes.
func (mem *Memory) Size() uint32 {
	return uint32(len(mem.Data))
}

// check verifies that [address, address+size) is inside the buffer.
func (mem *Memory) check(address uint32, size uint32) (err error) {
	if uint64(address)+uint64(size) > uint64(len(mem.Data)) {
		err = &ErrAddress{Address: address, Size: size, Limit: mem.Size()}
	}
	return
}

// Read reads an unsigned value of the given width.
func (mem *Memory) Read(address uint32, width Width) (value uint32, err error) {
	err = mem.check(address, uint32(width))
	if err != nil {
		return
	}

	data := mem.Data[address:]
	switch width {
	case WIDTH_1:
		value = uint32(data[0])
	case WIDTH_2:
		value = uint32(binary.LittleEndian.Uint16(data))
	case WIDTH_4:
		value = binary.LittleEndian.Uint32(data)
	default:
		err = &ErrAddress{Address: address, Size: uint32(width), Limit: mem.Size()}
	}

	return
}

// Write writes the low width bytes of value.
func (mem *Memory) Write(address uint32, width Width, value uint32) (err error) {
	err = mem.check(address, uint32(width))
	if err != nil {
		return
	}

	data := mem.Data[address:]
	switch width {
	case WIDTH_1:
		data[0] = uint8(value)
	case WIDTH_2:
		binary.LittleEndian.PutUint16(data, uint16(value))
	case WIDTH_4:
		binary.LittleEndian.PutUint32(data, value)
	default:
		err = &ErrAddress{Address: address, Size: uint32(width), Limit: mem.Size()}
	}

	return
}

// Bytes returns a view of size bytes at address.
func (mem *Memory) Bytes(address uint32, size uint32) (data []byte, err error) {
	err = mem.check(address, size)
	if err != nil {
		return
	}

	data = mem.Data[address : address+size]
	return
}

// Store copies data into memory at address. Nothing is written if any
// part of the destination is out of bounds.
func (mem *Memory) Store(address uint32, data []byte) (err error) {
	err = mem.check(address, uint32(len(data)))
	if err != nil {
		return
	}

	copy(mem.Data[address:], data)
	return
}

// CString reads the NUL terminated string at address.
func (mem *Memory) CString(address uint32) (text string, err error) {
	err = mem.check(address, 0)
	if err != nil {
		return
	}

	data := mem.Data[address:]
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		err = ErrUnterminated
		return
	}

	text = string(data[:end])
	return
}
