package credstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File stores each blob as a 0600 file under dir, one file per key.
type File struct {
	dir string
}

var _ Store = (*File)(nil)

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) Save(_ context.Context, key string, blob []byte) error {
	path := f.path(key)

	// Write-then-rename so a crash never leaves a truncated blob behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace credential: %w", err)
	}
	return nil
}

func (f *File) Load(_ context.Context, key string) ([]byte, error) {
	blob, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}
	return blob, nil
}

func (f *File) Clear(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	return nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+".cred")
}
