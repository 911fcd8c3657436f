package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stages uploads in a directory on the API host.
type Local struct {
	basePath string
}

func NewLocal(basePath string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	return &Local{basePath: basePath}, nil
}

func (s *Local) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("invalid staging key %q", key)
	}
	return filepath.Join(s.basePath, key), nil
}

func (s *Local) Put(_ context.Context, key string, data io.Reader) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}

	if _, err := io.Copy(file, data); err != nil {
		file.Close()
		os.Remove(fullPath)
		return fmt.Errorf("write staged file: %w", err)
	}

	return file.Close()
}

func (s *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open staged file: %w", err)
	}

	return file, nil
}

// Delete is idempotent.
func (s *Local) Delete(_ context.Context, key string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete staged file: %w", err)
	}

	return nil
}
