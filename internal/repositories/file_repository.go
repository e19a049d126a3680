package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-server/internal/models"
)

var ErrFileNotFound = errors.New("file not found")

// FileRepository persists upload metadata. Ciphertext lives in object storage.
type FileRepository interface {
	CreateFile(ctx context.Context, file models.File) error
	GetFile(ctx context.Context, fileID string) (models.File, error)
}

// FileRepo is a sqlx implementation of FileRepository.
type FileRepo struct {
	db *sqlx.DB
}

// NewFileRepo constructs a FileRepo.
func NewFileRepo(db *sqlx.DB) *FileRepo {
	return &FileRepo{db: db}
}

// CreateFile inserts a metadata row.
func (r *FileRepo) CreateFile(ctx context.Context, file models.File) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (id, original_name, mime_type, storage_pointer, created_at) VALUES ($1, $2, $3, $4, $5)`,
		file.ID, file.OriginalName, file.MimeType, file.StoragePointer, file.CreatedAt)
	return err
}

// GetFile fetches metadata by the opaque file id.
func (r *FileRepo) GetFile(ctx context.Context, fileID string) (models.File, error) {
	var file models.File
	err := r.db.GetContext(ctx, &file,
		`SELECT id, original_name, mime_type, storage_pointer, created_at FROM files WHERE id=$1`, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.File{}, ErrFileNotFound
	}
	return file, err
}
