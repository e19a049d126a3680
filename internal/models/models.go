package models

import "time"

// GlobalChatName is the well-known name of the single global chat row.
const GlobalChatName = "global"

// User represents a registered account.
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        *string   `db:"email" json:"email,omitempty"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Chat is a persistent chat room. The global chat is a single well-known row;
// private chats carry a name deterministically derived from their sorted
// participant ids.
type Chat struct {
	ID        int    `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	IsGroup   bool   `db:"is_group" json:"is_group"`
	IsPrivate bool   `db:"is_private" json:"is_private"`
}

// IsGlobal reports whether this is the global chat.
func (c Chat) IsGlobal() bool {
	return c.Name == GlobalChatName
}

// ChatMember authorizes a user to post in a non-global chat.
type ChatMember struct {
	ChatID int `db:"chat_id" json:"chat_id"`
	UserID int `db:"user_id" json:"user_id"`
}

// Message is immutable once persisted, except for the seen and deleted flags.
// Timestamp is server-assigned at commit time with microsecond resolution.
type Message struct {
	ID        int        `db:"id" json:"id"`
	ChatID    int        `db:"chat_id" json:"chat_id"`
	UserID    int        `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Content   string     `db:"content" json:"content"`
	Timestamp time.Time  `db:"timestamp" json:"timestamp"`
	Seen      bool       `db:"seen" json:"seen"`
	SeenAt    *time.Time `db:"seen_at" json:"seen_at,omitempty"`
	Deleted   bool       `db:"deleted" json:"deleted"`
}

// MessageWithSender is a history row joined with the sender's username.
type MessageWithSender struct {
	Message
	Username string `db:"username" json:"username"`
}

// File records metadata for an encrypted upload. The ciphertext itself lives
// in object storage at StoragePointer.
type File struct {
	ID             string    `db:"id" json:"id"`
	OriginalName   string    `db:"original_name" json:"original_name"`
	MimeType       string    `db:"mime_type" json:"mime_type"`
	StoragePointer string    `db:"storage_pointer" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// KeyVersion holds a content key wrapped under the master key. Rows are
// append-only; the latest version is the one with the maximum id.
type KeyVersion struct {
	ID         int       `db:"id" json:"id"`
	WrappedKey []byte    `db:"wrapped_key" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
