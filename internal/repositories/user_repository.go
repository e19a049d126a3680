package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-server/internal/models"
)

var (
	ErrUserExists   = errors.New("username or email exists")
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, username string, email *string, passwordHash string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByID(ctx context.Context, userID int) (models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts an account. Username and email are unique.
func (r *UserRepo) CreateUser(ctx context.Context, username string, email *string, passwordHash string) (models.User, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1)`
	args := []any{username}
	if email != nil {
		query = `SELECT EXISTS(SELECT 1 FROM users WHERE username=$1 OR email=$2)`
		args = append(args, *email)
	}
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return models.User{}, err
	}
	if exists {
		return models.User{}, ErrUserExists
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (username, email, password, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		username, email, passwordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		// The unique constraints back up the pre-check under races.
		if _, lookupErr := r.GetUserByUsername(ctx, username); lookupErr == nil {
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByUsername fetches an account by its unique username.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, username, email, password, created_at FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByID fetches an account by id.
func (r *UserRepo) GetUserByID(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, username, email, password, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
