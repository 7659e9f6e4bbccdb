// Package global holds process-wide configuration that must be chosen exactly
// once at startup: the default digest function used to derive workspace state
// directories, and the filesystem backend behind the identity record. Both are
// set-once values behind an explicit Registry that callers pass by reference,
// so the initialization invariant stays checkable in tests.
package global

import (
	"errors"
	"sync"

	"github.com/loykin/stoker/internal/fsys"
)

// Digest maps arbitrary bytes to a short stable hex string.
type Digest func(data []byte) string

var (
	ErrAlreadySet = errors.New("global: value already set")
	ErrNotSet     = errors.New("global: value not set")
)

// Registry guards the one-time globals. The zero value is ready to use.
type Registry struct {
	mu     sync.Mutex
	digest Digest
	fs     fsys.FS
}

// SetDigest installs the default digest function. It fails if a digest has
// already been installed or fn is nil.
func (r *Registry) SetDigest(fn Digest) error {
	if fn == nil {
		return errors.New("global: nil digest")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.digest != nil {
		return ErrAlreadySet
	}
	r.digest = fn
	return nil
}

// Digest returns the installed digest function, or ErrNotSet before SetDigest.
func (r *Registry) Digest() (Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.digest == nil {
		return nil, ErrNotSet
	}
	return r.digest, nil
}

// SetFilesystem installs the filesystem backend. It fails on a second call.
func (r *Registry) SetFilesystem(fs fsys.FS) error {
	if fs == nil {
		return errors.New("global: nil filesystem")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fs != nil {
		return ErrAlreadySet
	}
	r.fs = fs
	return nil
}

// Filesystem returns the installed backend, or ErrNotSet before SetFilesystem.
func (r *Registry) Filesystem() (fsys.FS, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fs == nil {
		return nil, ErrNotSet
	}
	return r.fs, nil
}
