// Package fsys abstracts the filesystem operations used by the identity
// record and workspace layout code, so they can be exercised against an
// in-memory backend in tests. The start-time probe never goes through this
// interface; it talks to the kernel directly.
package fsys

import (
	"os"
)

// FS is the minimal filesystem surface needed by the state directory code.
type FS interface {
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(name string, data []byte, perm os.FileMode) error
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
}

// OSFS implements FS by delegating to the os package.
type OSFS struct{}

func (OSFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (OSFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFS) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFS) Remove(name string) error { return os.Remove(name) }

func (OSFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }
