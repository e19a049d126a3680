package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore keeps ciphertext blobs as files under a single directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Write stores the blob under key. The pointer is the key itself.
func (s *DiskStore) Write(_ context.Context, key string, data []byte) (string, error) {
	key = filepath.Base(key)
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o600); err != nil {
		return "", err
	}
	return key, nil
}

// Read loads a blob by pointer.
func (s *DiskStore) Read(_ context.Context, pointer string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(pointer)))
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	}
	return data, err
}
