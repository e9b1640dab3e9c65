package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// LocalStorage implements Storage using the local filesystem. Relative names
// resolve against the base path; absolute names are used as given.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "."
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// BasePath returns the directory relative names resolve against
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

func (s *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, *FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	path, err := s.resolve(name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, notFound(name, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s is a directory", ErrInvalidName, name)
	}

	return f, info(name, path, st), nil
}

func (s *LocalStorage) Stat(ctx context.Context, name string) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, notFound(name, err)
	}
	return info(name, path, st), nil
}

func (s *LocalStorage) Write(ctx context.Context, name string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("failed to replace %s: %w", name, err)
	}

	return s.Stat(ctx, name)
}

func (s *LocalStorage) List(ctx context.Context, pattern string) ([]*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	full := pattern
	if !filepath.IsAbs(pattern) {
		full = filepath.Join(s.basePath, pattern)
	}
	paths, err := filepath.Glob(full)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	slices.Sort(paths)

	files := make([]*FileInfo, 0, len(paths))
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			continue
		}
		name := p
		if rel, err := filepath.Rel(s.basePath, p); err == nil && !filepath.IsAbs(pattern) {
			name = rel
		}
		files = append(files, info(name, p, st))
	}
	return files, nil
}

// resolve maps a name to a path. Relative names must stay inside the base
// path.
func (s *LocalStorage) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %s escapes the data directory", ErrInvalidName, name)
	}
	return filepath.Join(s.basePath, name), nil
}

func notFound(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return fmt.Errorf("failed to open %s: %w", name, err)
}

func info(name, path string, st fs.FileInfo) *FileInfo {
	return &FileInfo{
		Name:    name,
		Path:    path,
		Size:    st.Size(),
		ModTime: st.ModTime(),
	}
}
