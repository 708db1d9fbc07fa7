package io

import (
	"bytes"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiles_Stdio(t *testing.T) {
	assert := assert.New(t)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	fl := &Files{
		Stdin:  strings.NewReader("42 3.5\nhello\n"),
		Stdout: stdout,
		Stderr: stderr,
	}

	assert.NoError(fl.Print(HANDLE_STDOUT, "out"))
	assert.NoError(fl.Print(HANDLE_STDERR, "err"))
	assert.Equal("out", stdout.String())
	assert.Equal("err", stderr.String())

	value, err := fl.ReadInt(HANDLE_STDIN)
	assert.NoError(err)
	assert.Equal(int32(42), value)

	fvalue, err := fl.ReadFloat(HANDLE_STDIN)
	assert.NoError(err)
	assert.Equal(float32(3.5), fvalue)

	line, err := fl.ReadLine(HANDLE_STDIN, 80)
	assert.NoError(err)
	assert.Equal("\n", string(line))

	line, err = fl.ReadLine(HANDLE_STDIN, 80)
	assert.NoError(err)
	assert.Equal("hello\n", string(line))

	_, err = fl.ReadLine(HANDLE_STDIN, 80)
	assert.ErrorIs(err, io.EOF)

	_, err = fl.ReadInt(HANDLE_STDOUT)
	assert.ErrorIs(err, ErrNotReadable)

	assert.NoError(fl.Close(HANDLE_STDOUT))
	assert.NoError(fl.Print(HANDLE_STDOUT, "!"))
	assert.Equal("out!", stdout.String())
}

func TestFiles_ReadLineLimit(t *testing.T) {
	assert := assert.New(t)

	fl := &Files{Stdin: strings.NewReader("abcdef\n")}

	line, err := fl.ReadLine(HANDLE_STDIN, 4)
	assert.NoError(err)
	assert.Equal("abc", string(line))

	line, err = fl.ReadLine(HANDLE_STDIN, 1)
	assert.NoError(err)
	assert.Equal("", string(line))

	line, err = fl.ReadLine(HANDLE_STDIN, 10)
	assert.NoError(err)
	assert.Equal("def\n", string(line))
}

func TestFiles_ReadIntInvalid(t *testing.T) {
	assert := assert.New(t)

	fl := &Files{Stdin: strings.NewReader("nope")}

	_, err := fl.ReadInt(HANDLE_STDIN)
	assert.Error(err)
}

func TestFiles_OpenWriteRead(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	fl := &Files{FS: DirFS(dir)}

	handle, err := fl.Open("data.txt", MODE_CREATE|MODE_WRITE)
	assert.NoError(err)
	assert.Greater(handle, HANDLE_STDERR)
	assert.Equal(1, fl.Count())

	assert.NoError(fl.Print(handle, "12 line\n"))
	n, err := fl.Write(handle, []byte("tail"))
	assert.NoError(err)
	assert.Equal(4, n)

	_, err = fl.ReadInt(handle)
	assert.ErrorIs(err, ErrNotReadable)

	assert.NoError(fl.Close(handle))
	assert.Equal(0, fl.Count())
	assert.ErrorIs(fl.Close(handle), ErrHandleInvalid)

	content, err := os.ReadFile(filepath.Join(dir, "data.txt"))
	assert.NoError(err)
	assert.Equal("12 line\ntail", string(content))

	handle, err = fl.Open("data.txt", MODE_READ)
	assert.NoError(err)

	value, err := fl.ReadInt(handle)
	assert.NoError(err)
	assert.Equal(int32(12), value)

	line, err := fl.ReadLine(handle, 64)
	assert.NoError(err)
	assert.Equal(" line\n", string(line))

	data, err := fl.Read(handle, 64)
	assert.NoError(err)
	assert.Equal("tail", string(data))

	pos, err := fl.Seek(handle, 3, io.SeekStart)
	assert.NoError(err)
	assert.Equal(int64(3), pos)

	data, err = fl.Read(handle, 4)
	assert.NoError(err)
	assert.Equal("line", string(data))

	_, err = fl.Write(handle, []byte("x"))
	assert.ErrorIs(err, ErrNotWritable)

	assert.NoError(fl.Reset())
	assert.Equal(0, fl.Count())
}

func TestFiles_OpenFailure(t *testing.T) {
	assert := assert.New(t)

	fl := &Files{FS: DirFS(t.TempDir())}

	handle, err := fl.Open("missing.txt", MODE_READ)
	assert.Equal(HANDLE_NONE, handle)
	var open_err *ErrOpen
	assert.ErrorAs(err, &open_err)
	assert.Equal("missing.txt", open_err.Name)

	handle, err = fl.Open("missing.txt", MODE_WRITE)
	assert.Equal(HANDLE_NONE, handle)
	assert.ErrorIs(err, ErrModeInvalid)

	_, err = fl.ReadInt(99)
	assert.ErrorIs(err, ErrHandleInvalid)
}

func TestFiles_Append(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	assert.NoError(os.WriteFile(filepath.Join(dir, "log"), []byte("a"), 0o644))

	fl := &Files{FS: DirFS(dir)}
	handle, err := fl.Open("log", MODE_APPEND)
	assert.NoError(err)
	assert.NoError(fl.Print(handle, "b"))
	assert.NoError(fl.Close(handle))

	content, err := os.ReadFile(filepath.Join(dir, "log"))
	assert.NoError(err)
	assert.Equal("ab", string(content))
}

func TestFiles_Defines(t *testing.T) {
	assert := assert.New(t)

	fl := &Files{}
	defines := maps.Collect(fl.Defines())
	assert.Equal("1", defines["STDIN"])
	assert.Equal("2", defines["STDOUT"])
	assert.Equal("3", defines["STDERR"])
}
