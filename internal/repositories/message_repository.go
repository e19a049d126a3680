package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-server/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository persists chat messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatID int, userID int, msgType, content string, ts time.Time) (models.Message, error)
	ListChatMessages(ctx context.Context, chatID int) ([]models.MessageWithSender, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	MarkSeen(ctx context.Context, messageID int, ts time.Time) error
	SoftDelete(ctx context.Context, messageID int, senderID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message with its server-assigned timestamp.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatID int, userID int, msgType, content string, ts time.Time) (models.Message, error) {
	var id int
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (chat_id, user_id, type, content, timestamp) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		chatID, userID, msgType, content, ts).Scan(&id)
	if err != nil {
		return models.Message{}, err
	}
	return models.Message{
		ID:        id,
		ChatID:    chatID,
		UserID:    userID,
		Type:      msgType,
		Content:   content,
		Timestamp: ts,
	}, nil
}

// ListChatMessages returns messages joined with sender usernames, ordered by
// timestamp, excluding soft-deleted rows.
func (r *MessageRepo) ListChatMessages(ctx context.Context, chatID int) ([]models.MessageWithSender, error) {
	var msgs []models.MessageWithSender
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT m.id, m.chat_id, m.user_id, m.type, m.content, m.timestamp, m.seen, m.seen_at, m.deleted, u.username
         FROM messages m
         JOIN users u ON u.id = m.user_id
         WHERE m.chat_id=$1 AND m.deleted = FALSE
         ORDER BY m.timestamp ASC`, chatID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, chat_id, user_id, type, content, timestamp, seen, seen_at, deleted FROM messages WHERE id=$1`,
		messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkSeen flags a message as seen. Placeholders stay in textual order; the
// sqlite driver binds them by first occurrence, not by index.
func (r *MessageRepo) MarkSeen(ctx context.Context, messageID int, ts time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET seen = TRUE, seen_at = $1 WHERE id=$2`, ts, messageID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SoftDelete flags a message deleted. Only the sender may delete; the row
// itself is never removed.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID int, senderID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET deleted = TRUE WHERE id=$1 AND user_id=$2`, messageID, senderID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
