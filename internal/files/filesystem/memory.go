package filesystem

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return f.isDir }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

func (f *memoryFileInfo) Mode() fs.FileMode {
	if f.isDir {
		return 0755 | fs.ModeDir
	}
	return 0644
}

type memoryFile struct {
	content []byte
	info    *memoryFileInfo
}

// MemoryFileSystem implements Provider for in-memory testing.
// Relative paths are resolved against the root given to NewMemoryFileSystem.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	root  string
	files map[string]*memoryFile
}

// NewMemoryFileSystem creates an empty in-memory filesystem rooted at root.
func NewMemoryFileSystem(root string) *MemoryFileSystem {
	return &MemoryFileSystem{
		root:  path.Clean(filepath.ToSlash(root)),
		files: make(map[string]*memoryFile),
	}
}

// AddFile adds or replaces a file.
func (m *MemoryFileSystem) AddFile(name, content string) {
	m.AddFileWithTime(name, content, time.Now())
}

// AddFileWithTime adds or replaces a file with a specific modification time.
func (m *MemoryFileSystem) AddFileWithTime(name, content string, modTime time.Time) {
	abs := m.resolve(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[abs] = &memoryFile{
		content: []byte(content),
		info: &memoryFileInfo{
			name:    path.Base(abs),
			size:    int64(len(content)),
			modTime: modTime,
		},
	}
}

// Remove deletes a file. Removing a missing file is a no-op.
func (m *MemoryFileSystem) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, m.resolve(name))
}

func (m *MemoryFileSystem) resolve(name string) string {
	name = filepath.ToSlash(name)
	if name == "" || name == "." {
		return m.root
	}
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(m.root, name)
}

func (m *MemoryFileSystem) isDir(abs string) bool {
	if abs == m.root {
		return true
	}
	prefix := abs + "/"
	if abs == "/" {
		prefix = "/"
	}
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (m *MemoryFileSystem) Walk(dir string, fn WalkFunc) error {
	abs := m.resolve(dir)

	m.mu.RLock()
	if _, isFile := m.files[abs]; isFile {
		m.mu.RUnlock()
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	if !m.isDir(abs) {
		m.mu.RUnlock()
		return fmt.Errorf("failed to access %s: %w", dir, fs.ErrNotExist)
	}
	prefix := strings.TrimSuffix(abs, "/") + "/"
	var names []string
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			names = append(names, p)
		}
	}
	sort.Strings(names)
	entries := make([]*memoryFile, len(names))
	for i, p := range names {
		entries[i] = m.files[p]
	}
	m.mu.RUnlock()

	for i, p := range names {
		if err := callSafely(fn, strings.TrimPrefix(p, prefix), entries[i].info); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	abs := m.resolve(name)
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[abs]
	if !ok {
		if m.isDir(abs) {
			return nil, fmt.Errorf("path is a directory, not a file: %s", name)
		}
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(f.content))
	copy(out, f.content)
	return out, nil
}

func (m *MemoryFileSystem) Stat(name string) (FileInfo, error) {
	abs := m.resolve(name)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if f, ok := m.files[abs]; ok {
		return f.info, nil
	}
	if m.isDir(abs) {
		return &memoryFileInfo{name: path.Base(abs), modTime: time.Now(), isDir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

var _ Provider = (*MemoryFileSystem)(nil)
