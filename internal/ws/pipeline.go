package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chat-server/internal/models"
	"chat-server/internal/repositories"
)

// ErrNotMember rejects a send to a non-global chat the sender does not belong
// to. The ws layer closes the connection with a policy-violation code.
var ErrNotMember = errors.New("not a chat member")

// Inbound is a client frame. Content is the text, or a reference to a
// previously uploaded file when type is "file".
type Inbound struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	FileID string `json:"file_id"`
}

func (in Inbound) content() string {
	if in.Text != "" {
		return in.Text
	}
	return in.FileID
}

func (in Inbound) messageType() string {
	if in.Type == "" {
		return "text"
	}
	return in.Type
}

// MessagePipeline runs an inbound message through authorize, persist, and
// broadcast, in that order. Nothing is broadcast unless the persist committed;
// the timestamp on the wire is the committed one.
type MessagePipeline struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	hub      *Hub
}

// NewMessagePipeline constructs a MessagePipeline.
func NewMessagePipeline(chats repositories.ChatRepository, messages repositories.MessageRepository, hub *Hub) *MessagePipeline {
	return &MessagePipeline{chats: chats, messages: messages, hub: hub}
}

// Send processes one inbound message for an authenticated sender on a
// resolved chat. The global chat is always writable; any other chat requires
// membership. Persistence failure aborts the whole operation.
func (p *MessagePipeline) Send(ctx context.Context, chat models.Chat, senderID int, senderName string, in Inbound) (models.Message, error) {
	if !chat.IsGlobal() {
		member, err := p.chats.IsMember(ctx, chat.ID, senderID)
		if err != nil {
			return models.Message{}, err
		}
		if !member {
			return models.Message{}, ErrNotMember
		}
	}

	ts := time.Now().UTC().Truncate(time.Microsecond)
	msg, err := p.messages.CreateMessage(ctx, chat.ID, senderID, in.messageType(), in.content(), ts)
	if err != nil {
		return models.Message{}, err
	}

	event := models.MessageEvent{
		Username:  senderName,
		Type:      msg.Type,
		Text:      msg.Content,
		ChatName:  chat.Name,
		Timestamp: models.FormatWireTimestamp(msg.Timestamp),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return models.Message{}, err
	}
	p.hub.Broadcast(chat.ID, payload, nil)
	return msg, nil
}
