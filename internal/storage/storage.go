package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound indicates the pointer resolves to no stored object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore writes and reads opaque blobs. Write returns the pointer under
// which the blob can later be read.
type ObjectStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, pointer string) ([]byte, error)
}
