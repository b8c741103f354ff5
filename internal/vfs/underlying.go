package vfs

import (
	"io"
	"os"
	"path/filepath"
)

// UnderlyingFile is the minimal file surface the shim needs from whatever it
// wraps. *os.File satisfies it directly.
type UnderlyingFile interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Truncate(size int64) error
	Sync() error
}

// Underlying is the delegate VFS the shim wraps by pointer. OSUnderlying is
// the default, backing every file with a plain *os.File; it is also what
// the package's tests use, against files in a temporary directory.
type Underlying interface {
	Open(path string, flags OpenFlag) (UnderlyingFile, error)
	Delete(path string, syncDir bool) error
	Access(path string, flags AccessFlag) (bool, error)
	FullPathname(path string) (string, error)
}

// OSUnderlying delegates every operation to the os package, the plain
// pass-through VFS the shim sits in front of.
type OSUnderlying struct{}

func (OSUnderlying) Open(path string, flags OpenFlag) (UnderlyingFile, error) {
	osFlags := os.O_RDWR
	if flags&OpenReadWrite == 0 && flags&OpenReadOnly != 0 {
		osFlags = os.O_RDONLY
	}
	if flags&OpenCreate != 0 {
		osFlags |= os.O_CREATE
	}
	return os.OpenFile(path, osFlags, 0o600)
}

func (OSUnderlying) Delete(path string, syncDir bool) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (OSUnderlying) Access(path string, flags AccessFlag) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if flags == AccessReadWrite {
		return info.Mode().Perm()&0o200 != 0, nil
	}
	return true, nil
}

func (OSUnderlying) FullPathname(path string) (string, error) {
	return filepath.Abs(path)
}
