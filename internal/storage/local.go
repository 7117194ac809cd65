// Package storage is the object store for uploaded media.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty, absolute or escape the root.
var ErrInvalidKey = errors.New("invalid object key")

// LocalStore keeps objects as files under a root directory, which the HTTP
// server exposes at URLPrefix.
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Root is the directory objects are written to.
func (s *LocalStore) Root() string { return s.root }

// Put writes data under key atomically and returns the public URL.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return s.URL(key), nil
}

// Delete removes the object. Missing objects are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// URL is the public address of key.
func (s *LocalStore) URL(key string) string {
	return s.urlPrefix + "/" + strings.TrimLeft(filepath.ToSlash(key), "/")
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, clean), nil
}
