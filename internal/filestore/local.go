package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

type localStore struct {
	dir string
}

func NewLocal(dir string) (Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir failed: %w", err)
	}
	return &localStore{dir: dir}, nil
}

func (s *localStore) Type() string {
	return "local"
}

func (s *localStore) Save(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	path := filepath.Join(s.dir, key)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}
	n, err := io.Copy(out, io.LimitReader(r, size+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n != size {
		err = fmt.Errorf("expected %d bytes, wrote %d", size, n)
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write file failed: %w", err)
	}
	return nil
}

func (s *localStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open file failed: %w", err)
	}
	return f, nil
}

func (s *localStore) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file failed: %w", err)
	}
	return nil
}
