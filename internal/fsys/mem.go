package fsys

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Mem is an in-memory FS for tests. Pre-populate Files and Dirs, or inject
// per-path errors via Errors (checked before any other lookup).
type Mem struct {
	mu     sync.Mutex
	Files  map[string][]byte
	Dirs   map[string]bool
	Errors map[string]error
}

// NewMem returns a Mem with empty maps.
func NewMem() *Mem {
	return &Mem{
		Files:  make(map[string][]byte),
		Dirs:   make(map[string]bool),
		Errors: make(map[string]error),
	}
}

func (m *Mem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.Errors[path]; ok {
		return err
	}
	for p := filepath.Clean(path); p != "." && p != string(filepath.Separator); p = filepath.Dir(p) {
		m.Dirs[p] = true
	}
	return nil
}

func (m *Mem) WriteFile(name string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.Errors[name]; ok {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.Files[name] = cp
	return nil
}

func (m *Mem) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	data, ok := m.Files[name]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *Mem) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.Errors[name]; ok {
		return err
	}
	if _, ok := m.Files[name]; ok {
		delete(m.Files, name)
		return nil
	}
	if m.Dirs[name] {
		delete(m.Dirs, name)
		return nil
	}
	return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
}

func (m *Mem) Stat(name string) (os.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	if data, ok := m.Files[name]; ok {
		return memInfo{name: filepath.Base(name), size: int64(len(data))}, nil
	}
	if m.Dirs[name] {
		return memInfo{name: filepath.Base(name), dir: true}, nil
	}
	return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
}

type memInfo struct {
	name string
	size int64
	dir  bool
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return 0o644 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.dir }
func (i memInfo) Sys() any           { return nil }
