package filesystem

import (
	"errors"
	"io/fs"
	"path"
	"sort"
	"sync"
	"time"
)

// MockFileSystem is an in-memory FileSystem. Paths use forward slashes and
// are cleaned; relative paths are resolved against /workspace.
type MockFileSystem struct {
	mu    sync.RWMutex
	files map[string]*MockFile
}

// MockFile represents a file or directory in the mock filesystem.
type MockFile struct {
	Content []byte
	Mode    fs.FileMode
	ModTime time.Time
	IsDir   bool
}

type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

type mockDirEntry struct {
	info fs.FileInfo
}

func (m *mockDirEntry) Name() string               { return m.info.Name() }
func (m *mockDirEntry) IsDir() bool                { return m.info.IsDir() }
func (m *mockDirEntry) Type() fs.FileMode          { return m.info.Mode().Type() }
func (m *mockDirEntry) Info() (fs.FileInfo, error) { return m.info, nil }

// NewMockFileSystem creates an empty MockFileSystem with the /workspace root.
func NewMockFileSystem() *MockFileSystem {
	m := &MockFileSystem{files: make(map[string]*MockFile)}
	m.AddDir("/workspace")
	return m
}

func clean(p string) string {
	if !path.IsAbs(p) {
		p = path.Join("/workspace", p)
	}
	return path.Clean(p)
}

// AddFile adds a file, creating parent directories.
func (m *MockFileSystem) AddFile(p string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	m.files[cp] = &MockFile{Content: content, Mode: 0o644, ModTime: time.Now()}
	m.addParents(cp)
}

// AddFiles adds every path → content pair.
func (m *MockFileSystem) AddFiles(files map[string]string) {
	for p, c := range files {
		m.AddFile(p, []byte(c))
	}
}

// AddDir adds a directory, creating parent directories.
func (m *MockFileSystem) AddDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	m.addDirLocked(cp)
	m.addParents(cp)
}

func (m *MockFileSystem) addDirLocked(cp string) {
	if _, ok := m.files[cp]; !ok {
		m.files[cp] = &MockFile{Mode: 0o755 | fs.ModeDir, ModTime: time.Now(), IsDir: true}
	}
}

func (m *MockFileSystem) addParents(cp string) {
	for dir := path.Dir(cp); dir != cp; cp, dir = dir, path.Dir(dir) {
		m.addDirLocked(dir)
		if dir == "/" {
			return
		}
	}
}

func (m *MockFileSystem) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[clean(p)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	if f.IsDir {
		return nil, &fs.PathError{Op: "read", Path: p, Err: errors.New("is a directory")}
	}
	out := make([]byte, len(f.Content))
	copy(out, f.Content)
	return out, nil
}

func (m *MockFileSystem) WriteFile(p string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	if parent, ok := m.files[path.Dir(cp)]; !ok || !parent.IsDir {
		return &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[cp] = &MockFile{Content: buf, Mode: perm, ModTime: time.Now()}
	return nil
}

// ReadDir returns direct children sorted by name.
func (m *MockFileSystem) ReadDir(p string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := clean(p)
	f, ok := m.files[cp]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	if !f.IsDir {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: errors.New("not a directory")}
	}

	var entries []fs.DirEntry
	for fp, file := range m.files {
		if fp == cp || path.Dir(fp) != cp {
			continue
		}
		entries = append(entries, &mockDirEntry{info: infoFor(fp, file)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (m *MockFileSystem) Stat(p string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := clean(p)
	f, ok := m.files[cp]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
	}
	return infoFor(cp, f), nil
}

func (m *MockFileSystem) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[clean(p)]
	return ok
}

func (m *MockFileSystem) Abs(p string) (string, error) { return clean(p), nil }

func infoFor(p string, f *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:    path.Base(p),
		size:    int64(len(f.Content)),
		mode:    f.Mode,
		modTime: f.ModTime,
		isDir:   f.IsDir,
	}
}
