package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-server/internal/models"
)

var ErrNoKeyVersions = errors.New("no key versions")

// KeyRepository stores wrapped content keys. Rows are append-only and never
// mutated or deleted by normal operation.
type KeyRepository interface {
	AppendKeyVersion(ctx context.Context, wrapped []byte, ts time.Time) (models.KeyVersion, error)
	LatestKeyVersion(ctx context.Context) (models.KeyVersion, error)
}

// KeyRepo is a sqlx implementation of KeyRepository.
type KeyRepo struct {
	db *sqlx.DB
}

// NewKeyRepo constructs a KeyRepo.
func NewKeyRepo(db *sqlx.DB) *KeyRepo {
	return &KeyRepo{db: db}
}

// AppendKeyVersion inserts a new wrapped content key.
func (r *KeyRepo) AppendKeyVersion(ctx context.Context, wrapped []byte, ts time.Time) (models.KeyVersion, error) {
	kv := models.KeyVersion{WrappedKey: wrapped, CreatedAt: ts}
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO key_versions (wrapped_key, created_at) VALUES ($1, $2) RETURNING id`,
		wrapped, ts).Scan(&kv.ID)
	if err != nil {
		return models.KeyVersion{}, err
	}
	return kv, nil
}

// LatestKeyVersion returns the row with the maximum id.
func (r *KeyRepo) LatestKeyVersion(ctx context.Context) (models.KeyVersion, error) {
	var kv models.KeyVersion
	err := r.db.GetContext(ctx, &kv,
		`SELECT id, wrapped_key, created_at FROM key_versions ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.KeyVersion{}, ErrNoKeyVersions
	}
	return kv, err
}
