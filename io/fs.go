package io

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Handle is an open host file.
type Handle interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}

// FS defines the host file system used by file syscalls.
type FS interface {
	// OpenFile opens a file with os.OpenFile style flags.
	OpenFile(name string, flag int, perm fs.FileMode) (file Handle, err error)
}

// DirFS is an FS rooted at a host directory. The empty DirFS resolves
// names against the process working directory.
type DirFS string

var _ FS = DirFS("")

// OpenFile opens name relative to the root directory.
func (dir DirFS) OpenFile(name string, flag int, perm fs.FileMode) (file Handle, err error) {
	if len(dir) != 0 {
		name = filepath.Join(string(dir), filepath.FromSlash(name))
	}

	return os.OpenFile(name, flag, perm)
}
