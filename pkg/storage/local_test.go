package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLocalStorage_WriteAndOpen(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	info, err := s.Write(ctx, "out/engineering.md", strings.NewReader("| year |\n"))
	require.NoError(t, err)
	assert.Equal(t, "out/engineering.md", info.Name)
	assert.Equal(t, int64(9), info.Size)

	rc, opened, err := s.Open(ctx, "out/engineering.md")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "| year |\n", string(data))
	assert.Equal(t, info.Path, opened.Path)

	// overwrite leaves no temp files behind
	_, err = s.Write(ctx, "out/engineering.md", strings.NewReader("x"))
	require.NoError(t, err)
	entries, err := os.ReadDir(filepath.Join(s.BasePath(), "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStorage_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, _, err := s.Open(context.Background(), "missing.md")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Stat(context.Background(), "missing.md")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_InvalidNames(t *testing.T) {
	s := newTestStorage(t)

	for _, name := range []string{"", "../outside.md", "a/../../b.md"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := s.Open(context.Background(), name)
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestLocalStorage_AbsolutePath(t *testing.T) {
	s := newTestStorage(t)
	abs := filepath.Join(t.TempDir(), "page1.txt")
	require.NoError(t, os.WriteFile(abs, []byte("2021년"), 0o644))

	rc, info, err := s.Open(context.Background(), abs)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, abs, info.Path)
}

func TestLocalStorage_List(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	for _, name := range []string{"b.txt", "a.txt", "c.md"} {
		_, err := s.Write(ctx, name, strings.NewReader(name))
		require.NoError(t, err)
	}

	files, err := s.List(ctx, "*.txt")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, "b.txt", files[1].Name)

	_, err = s.List(ctx, "[")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestNew(t *testing.T) {
	s, err := New(&Config{Type: StorageTypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = New(&Config{Type: "s3"})
	assert.Error(t, err)
}
