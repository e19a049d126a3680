// Package files seals uploaded content under the active content key before it
// reaches storage, and unseals it on retrieval.
package files

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"chat-server/internal/keys"
	"chat-server/internal/models"
	"chat-server/internal/repositories"
	"chat-server/internal/storage"
)

// ErrEmptyFile rejects zero-length uploads at validation time.
var ErrEmptyFile = errors.New("empty file")

// Envelope encrypts uploads at rest: ciphertext goes to object storage under
// a fresh opaque id, metadata goes to the files table.
type Envelope struct {
	keys  *keys.Manager
	store storage.ObjectStore
	files repositories.FileRepository
}

// NewEnvelope constructs an Envelope.
func NewEnvelope(manager *keys.Manager, store storage.ObjectStore, files repositories.FileRepository) *Envelope {
	return &Envelope{keys: manager, store: store, files: files}
}

// Store seals raw under the active content key with a fresh nonce, writes the
// ciphertext, and persists the metadata row.
func (e *Envelope) Store(ctx context.Context, originalName, mimeType string, raw []byte) (models.File, error) {
	if len(raw) == 0 {
		return models.File{}, ErrEmptyFile
	}

	sealed, err := keys.Seal(e.keys.ActiveKey(), raw)
	if err != nil {
		return models.File{}, err
	}

	id := uuid.NewString()
	pointer, err := e.store.Write(ctx, id, sealed)
	if err != nil {
		return models.File{}, err
	}

	file := models.File{
		ID:             id,
		OriginalName:   originalName,
		MimeType:       mimeType,
		StoragePointer: pointer,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.files.CreateFile(ctx, file); err != nil {
		return models.File{}, err
	}
	return file, nil
}

// Retrieve loads metadata and ciphertext and unseals the content. Ciphertext
// produced under a content key no longer held in memory fails with
// keys.ErrDecryption; partial plaintext is never returned.
func (e *Envelope) Retrieve(ctx context.Context, fileID string) (models.File, []byte, error) {
	file, err := e.files.GetFile(ctx, fileID)
	if err != nil {
		return models.File{}, nil, err
	}

	sealed, err := e.store.Read(ctx, file.StoragePointer)
	if err != nil {
		return models.File{}, nil, err
	}

	raw, err := keys.Open(e.keys.ActiveKey(), sealed)
	if err != nil {
		return models.File{}, nil, err
	}
	return file, raw, nil
}
