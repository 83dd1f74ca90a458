// Package filesystem abstracts the file operations the scanner needs so
// workspaces can be described in memory during tests.
package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem provides an abstraction over file operations for testability.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm fs.FileMode) error

	ReadDir(path string) ([]fs.DirEntry, error)

	Stat(path string) (fs.FileInfo, error)
	Exists(path string) bool
	Abs(path string) (string, error)
}

// OSFileSystem implements FileSystem on top of the os package.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OSFileSystem.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OSFileSystem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// ReadDir returns entries sorted by filename.
func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) { return os.ReadDir(path) }

func (OSFileSystem) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) Abs(path string) (string, error) { return filepath.Abs(path) }
