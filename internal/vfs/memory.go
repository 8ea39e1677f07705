package vfs

import (
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemFS is an in-memory file system for testing.
// Paths are stored slash-separated and cleaned.
type MemFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	times map[string]time.Time
}

// NewMemFS creates an empty in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string][]byte),
		times: make(map[string]time.Time),
	}
}

// Ensure MemFS implements VFS.
var _ VFS = (*MemFS)(nil)

// AddFile adds or replaces a file.
func (m *MemFS) AddFile(p string, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean(p)
	m.files[p] = []byte(content)
	m.times[p] = time.Now()
}

// RemoveFile removes a file if present.
func (m *MemFS) RemoveFile(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean(p)
	delete(m.files, p)
	delete(m.times, p)
}

// ReadFile reads the entire file content.
func (m *MemFS) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[path.Clean(p)]
	if !ok {
		return nil, ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Stat returns file information.
func (m *MemFS) Stat(p string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = path.Clean(p)
	if data, ok := m.files[p]; ok {
		return FileInfo{
			Path:    p,
			Name:    path.Base(p),
			Size:    int64(len(data)),
			ModTime: m.times[p],
		}, nil
	}
	if m.isDirLocked(p) {
		return FileInfo{Path: p, Name: path.Base(p), IsDir: true}, nil
	}
	return FileInfo{}, ErrNotExist
}

// ReadDir reads a directory and returns its entries.
func (m *MemFS) ReadDir(p string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = path.Clean(p)
	if !m.isDirLocked(p) {
		return nil, ErrNotExist
	}

	seen := make(map[string]FileInfo)
	prefix := p + "/"
	if p == "/" {
		prefix = "/"
	}
	for fp, data := range m.files {
		if !strings.HasPrefix(fp, prefix) {
			continue
		}
		rest := strings.TrimPrefix(fp, prefix)
		if rest == "" {
			continue
		}
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			// Child directory
			name := rest[:idx]
			dirPath := prefix + name
			seen[name] = FileInfo{Path: dirPath, Name: name, IsDir: true}
			continue
		}
		seen[rest] = FileInfo{
			Path:    fp,
			Name:    rest,
			Size:    int64(len(data)),
			ModTime: m.times[fp],
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]FileInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, seen[name])
	}
	return infos, nil
}

// Exists returns true if the path exists as a file or directory.
func (m *MemFS) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = path.Clean(p)
	if _, ok := m.files[p]; ok {
		return true
	}
	return m.isDirLocked(p)
}

// isDirLocked reports whether p is an implicit directory (caller holds lock).
func (m *MemFS) isDirLocked(p string) bool {
	if p == "/" {
		return len(m.files) > 0
	}
	prefix := p + "/"
	for fp := range m.files {
		if strings.HasPrefix(fp, prefix) {
			return true
		}
	}
	return false
}
