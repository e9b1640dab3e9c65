// Package storage reads source documents (OCR text, page images, markdown
// tables, legacy JSON) and writes extraction output under a data directory.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidName = errors.New("invalid file name")
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"` // resolved filesystem path
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Storage defines the file operations the extraction pipeline needs
type Storage interface {
	// Open returns a reader for a file and its metadata
	Open(ctx context.Context, name string) (io.ReadCloser, *FileInfo, error)

	// Stat returns metadata without opening the file
	Stat(ctx context.Context, name string) (*FileInfo, error)

	// Write atomically replaces a file with the reader's content
	Write(ctx context.Context, name string, r io.Reader) (*FileInfo, error)

	// List returns files matching a glob pattern, sorted by name
	List(ctx context.Context, pattern string) ([]*FileInfo, error)
}

// StorageType identifies the storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
)

// Config holds storage configuration
type Config struct {
	Type      StorageType
	LocalPath string
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	default:
		return nil, errors.New("unsupported storage type: " + string(cfg.Type))
	}
}
