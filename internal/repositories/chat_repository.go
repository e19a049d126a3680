package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"chat-server/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository resolves chat identities and memberships.
type ChatRepository interface {
	GetOrCreateGlobal(ctx context.Context) (models.Chat, error)
	GetOrCreatePrivate(ctx context.Context, userIDs []int) (models.Chat, error)
	GetChatByName(ctx context.Context, name string) (models.Chat, error)
	IsMember(ctx context.Context, chatID int, userID int) (bool, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// PrivateChatName derives the deterministic name for a participant set.
// Sorting makes the derivation commutative over the set.
func PrivateChatName(userIDs []int) string {
	sorted := append([]int(nil), userIDs...)
	sort.Ints(sorted)
	parts := make([]string, 0, len(sorted))
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return "private_" + strings.Join(parts, "_")
}

// GetOrCreateGlobal returns the single global chat, creating it once.
func (r *ChatRepo) GetOrCreateGlobal(ctx context.Context) (models.Chat, error) {
	chat, err := r.GetChatByName(ctx, models.GlobalChatName)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, ErrChatNotFound) {
		return models.Chat{}, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO chats (name, is_group, is_private) VALUES ($1, FALSE, FALSE) RETURNING id, name, is_group, is_private`,
		models.GlobalChatName).
		Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.IsPrivate)
	if err != nil {
		// A concurrent boot may have won the insert; the unique name
		// makes the re-read authoritative.
		if existing, lookupErr := r.GetChatByName(ctx, models.GlobalChatName); lookupErr == nil {
			return existing, nil
		}
		return models.Chat{}, err
	}
	return chat, nil
}

// GetOrCreatePrivate resolves the deterministic private chat for a participant
// set, inserting the chat row and one membership row per participant as a
// single transaction when it does not exist yet. Two concurrent first-contact
// calls converge on one row through the unique name constraint: the loser's
// insert fails and it re-reads the winner's row.
func (r *ChatRepo) GetOrCreatePrivate(ctx context.Context, userIDs []int) (models.Chat, error) {
	if len(userIDs) == 0 {
		return models.Chat{}, errors.New("no participants")
	}
	name := PrivateChatName(userIDs)

	chat, err := r.GetChatByName(ctx, name)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, ErrChatNotFound) {
		return models.Chat{}, err
	}

	chat, err = r.createPrivate(ctx, name, userIDs)
	if err != nil {
		if existing, lookupErr := r.GetChatByName(ctx, name); lookupErr == nil {
			return existing, nil
		}
		return models.Chat{}, err
	}
	return chat, nil
}

func (r *ChatRepo) createPrivate(ctx context.Context, name string, userIDs []int) (models.Chat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var chat models.Chat
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO chats (name, is_group, is_private) VALUES ($1, FALSE, TRUE) RETURNING id, name, is_group, is_private`,
		name).
		Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.IsPrivate); err != nil {
		return models.Chat{}, err
	}

	seen := map[int]struct{}{}
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)`, chat.ID, id); err != nil {
			return models.Chat{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// GetChatByName fetches a chat by its unique name.
func (r *ChatRepo) GetChatByName(ctx context.Context, name string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT id, name, is_group, is_private FROM chats WHERE name=$1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// IsMember checks whether a user belongs to the chat.
func (r *ChatRepo) IsMember(ctx context.Context, chatID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_members WHERE chat_id=$1 AND user_id=$2)`, chatID, userID)
	return exists, err
}
