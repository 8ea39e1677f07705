// Package vfs provides a virtual file system abstraction.
//
// The VFS interface allows swapping the underlying file system
// implementation, enabling the indexing pipeline to run against
// in-memory fixtures in tests and the OS file system in production.
package vfs

import (
	"errors"
	"time"
)

// Common errors returned by VFS operations.
var (
	ErrNotExist = errors.New("file does not exist")
	ErrIsDir    = errors.New("path is a directory")
)

// FileInfo describes a file or directory.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// VFS is a read-oriented virtual file system.
type VFS interface {
	// ReadFile reads the entire file content.
	ReadFile(path string) ([]byte, error)

	// Stat returns file information.
	Stat(path string) (FileInfo, error)

	// ReadDir reads a directory and returns its entries.
	ReadDir(path string) ([]FileInfo, error)

	// Exists returns true if the path exists.
	Exists(path string) bool
}

// ContentSource is the narrow read surface consumed by the indices.
// Both a VFS and an open-buffer overlay satisfy it.
type ContentSource interface {
	ReadFile(path string) ([]byte, error)
}
