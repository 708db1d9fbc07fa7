package io

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"os"
)

const (
	HANDLE_NONE   = int32(0) // Failed open.
	HANDLE_STDIN  = int32(1) // Standard input.
	HANDLE_STDOUT = int32(2) // Standard output.
	HANDLE_STDERR = int32(3) // Standard error.

	FILES_LIMIT = 256 // Maximum number of simultaneously open files.
)

var _files_defines = map[string]string{
	"STDIN":  fmt.Sprintf("%d", HANDLE_STDIN),
	"STDOUT": fmt.Sprintf("%d", HANDLE_STDOUT),
	"STDERR": fmt.Sprintf("%d", HANDLE_STDERR),
}

// file is a single entry of the file table.
type file struct {
	name   string
	reader *bufio.Reader
	writer io.Writer
	seeker io.Seeker
	closer io.Closer
	source io.Reader
}

// Files is the table of host files visible to a running program.
type Files struct {
	Verbose bool // If set, logs open and close.

	Stdin  io.Reader // Standard input, os.Stdin if nil.
	Stdout io.Writer // Standard output, os.Stdout if nil.
	Stderr io.Writer // Standard error, os.Stderr if nil.
	FS     FS        // File system for opens, the working directory if nil.

	stdio [3]*file
	open  map[int32]*file
	next  int32
}

// Defines returns the assembler equates for the standard handles.
func (fl *Files) Defines() iter.Seq2[string, string] {
	return maps.All(_files_defines)
}

// Reset closes every opened file and forgets the standard streams, so
// that changes to Stdin, Stdout or Stderr take effect.
func (fl *Files) Reset() (err error) {
	for handle, entry := range fl.open {
		if entry.closer != nil {
			err = errors.Join(err, entry.closer.Close())
		}
		delete(fl.open, handle)
	}
	fl.next = 0
	clear(fl.stdio[:])

	return
}

// Count returns the number of opened (non standard) files.
func (fl *Files) Count() int {
	return len(fl.open)
}

// Writer returns the writer for a handle.
func (fl *Files) Writer(handle int32) (w io.Writer, err error) {
	entry, err := fl.get(handle)
	if err != nil {
		return
	}
	if entry.writer == nil {
		err = ErrNotWritable
		return
	}

	w = entry.writer
	return
}

// stdioFile returns the lazily created standard stream entry.
func (fl *Files) stdioFile(handle int32) *file {
	index := int(handle - HANDLE_STDIN)
	if fl.stdio[index] != nil {
		return fl.stdio[index]
	}

	std := &file{}
	switch handle {
	case HANDLE_STDIN:
		std.name = "stdin"
		std.source = fl.Stdin
		if std.source == nil {
			std.source = os.Stdin
		}
		std.reader = bufio.NewReader(std.source)
	case HANDLE_STDOUT:
		std.name = "stdout"
		std.writer = fl.Stdout
		if std.writer == nil {
			std.writer = os.Stdout
		}
	case HANDLE_STDERR:
		std.name = "stderr"
		std.writer = fl.Stderr
		if std.writer == nil {
			std.writer = os.Stderr
		}
	}

	fl.stdio[index] = std
	return std
}

// get finds a table entry.
func (fl *Files) get(handle int32) (entry *file, err error) {
	if handle >= HANDLE_STDIN && handle <= HANDLE_STDERR {
		entry = fl.stdioFile(handle)
		return
	}

	entry, ok := fl.open[handle]
	if !ok {
		err = ErrHandleInvalid
		return
	}

	return
}

// Open opens a host file, returning its handle.
func (fl *Files) Open(name string, mode OpenMode) (handle int32, err error) {
	flag, err := mode.Flags()
	if err != nil {
		return
	}

	if len(fl.open) >= FILES_LIMIT {
		err = ErrTableFull
		return
	}

	fs := fl.FS
	if fs == nil {
		fs = DirFS("")
	}

	host, err := fs.OpenFile(name, flag, 0o644)
	if err != nil {
		err = &ErrOpen{Name: name, Err: err}
		return
	}

	entry := &file{
		name:   name,
		seeker: host,
		closer: host,
		source: host,
	}
	if flag&(os.O_WRONLY) == 0 {
		entry.reader = bufio.NewReader(host)
	}
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		entry.writer = host
	}

	if fl.open == nil {
		fl.open = make(map[int32]*file)
	}

	// Find a free handle past the standard streams.
	for {
		fl.next++
		if fl.next <= HANDLE_STDERR || fl.next < 0 {
			fl.next = HANDLE_STDERR + 1
		}
		if _, used := fl.open[fl.next]; !used {
			break
		}
	}

	handle = fl.next
	fl.open[handle] = entry

	if fl.Verbose {
		log.Printf("io: open %v mode %q as %d", name, mode.String(), handle)
	}

	return
}

// Close closes a handle. Closing a standard stream is a no-op.
func (fl *Files) Close(handle int32) (err error) {
	entry, err := fl.get(handle)
	if err != nil {
		return
	}

	if handle <= HANDLE_STDERR {
		return
	}

	delete(fl.open, handle)
	if entry.closer != nil {
		err = entry.closer.Close()
	}

	if fl.Verbose {
		log.Printf("io: close %d (%v)", handle, entry.name)
	}

	return
}

// Print writes text to a handle and flushes it.
func (fl *Files) Print(handle int32, text string) (err error) {
	w, err := fl.Writer(handle)
	if err != nil {
		return
	}

	_, err = io.WriteString(w, text)
	if err != nil {
		return
	}

	if flusher, ok := w.(interface{ Flush() error }); ok {
		err = flusher.Flush()
	}

	return
}

// Write writes raw bytes to a handle.
func (fl *Files) Write(handle int32, data []byte) (n int, err error) {
	w, err := fl.Writer(handle)
	if err != nil {
		return
	}

	n, err = w.Write(data)
	return
}

// reader returns the buffered reader for a handle.
func (fl *Files) reader(handle int32) (r *bufio.Reader, err error) {
	entry, err := fl.get(handle)
	if err != nil {
		return
	}
	if entry.reader == nil {
		err = ErrNotReadable
		return
	}

	r = entry.reader
	return
}

// ReadLine reads at most max-1 bytes, stopping after a newline.
// The newline is kept. Returns io.EOF if nothing could be read.
func (fl *Files) ReadLine(handle int32, max int) (line []byte, err error) {
	r, err := fl.reader(handle)
	if err != nil {
		return
	}

	if max < 1 {
		err = ErrNotReadable
		return
	}

	line = []byte{}
	for len(line) < max-1 {
		var c byte
		c, err = r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				err = nil
			}
			return
		}
		line = append(line, c)
		if c == '\n' {
			break
		}
	}

	return
}

// ReadInt scans a decimal integer, skipping leading white space.
func (fl *Files) ReadInt(handle int32) (value int32, err error) {
	r, err := fl.reader(handle)
	if err != nil {
		return
	}

	_, err = fmt.Fscan(r, &value)
	return
}

// ReadFloat scans a floating point number, skipping leading white space.
func (fl *Files) ReadFloat(handle int32) (value float32, err error) {
	r, err := fl.reader(handle)
	if err != nil {
		return
	}

	_, err = fmt.Fscan(r, &value)
	return
}

// Read reads up to size bytes. A short read at end of file is not an error.
func (fl *Files) Read(handle int32, size int) (data []byte, err error) {
	r, err := fl.reader(handle)
	if err != nil {
		return
	}

	data = make([]byte, size)
	n, err := io.ReadFull(r, data)
	data = data[:n]
	if n > 0 && errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}

	return
}

// Seek moves the file position, discarding any buffered input.
func (fl *Files) Seek(handle int32, offset int64, whence int) (position int64, err error) {
	entry, err := fl.get(handle)
	if err != nil {
		return
	}
	if entry.seeker == nil {
		err = ErrNotSeekable
		return
	}

	if entry.reader != nil && whence == io.SeekCurrent {
		offset -= int64(entry.reader.Buffered())
	}

	position, err = entry.seeker.Seek(offset, whence)
	if err != nil {
		return
	}

	if entry.reader != nil {
		entry.reader.Reset(entry.source)
	}

	return
}
