package adapter

import (
	"io"
	"os"
)

// FileSystem defines the file operations the snapshot sink needs
type FileSystem interface {
	// MkdirAll creates a directory and any missing parents
	MkdirAll(path string, perm os.FileMode) error

	// CreateTemp creates a new temporary file in dir
	CreateTemp(dir, pattern string) (File, error)

	// Rename atomically moves oldpath to newpath
	Rename(oldpath, newpath string) error

	// Remove removes the named file or directory
	Remove(name string) error
}

// File defines an interface for file operations
type File interface {
	io.Writer
	io.Closer
	Name() string
	Chmod(mode os.FileMode) error
}

// RealFileSystem implements FileSystem using the standard os package
type RealFileSystem struct{}

// NewFileSystem creates a new real file system
func NewFileSystem() FileSystem {
	return &RealFileSystem{}
}

func (fs *RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (fs *RealFileSystem) CreateTemp(dir, pattern string) (File, error) {
	return os.CreateTemp(dir, pattern)
}

func (fs *RealFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Remove removes the named file or directory
func (fs *RealFileSystem) Remove(name string) error {
	return os.Remove(name)
}
