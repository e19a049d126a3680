package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chat-server/internal/models"
	"chat-server/internal/repositories"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) GetOrCreateGlobal(ctx context.Context) (models.Chat, error) {
	args := m.Called(ctx)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetOrCreatePrivate(ctx context.Context, userIDs []int) (models.Chat, error) {
	args := m.Called(ctx, userIDs)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChatByName(ctx context.Context, name string) (models.Chat, error) {
	args := m.Called(ctx, name)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsMember(ctx context.Context, chatID int, userID int) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, chatID int, userID int, msgType, content string, ts time.Time) (models.Message, error) {
	args := m.Called(ctx, chatID, userID, msgType, content, ts)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListChatMessages(ctx context.Context, chatID int) ([]models.MessageWithSender, error) {
	args := m.Called(ctx, chatID)
	var list []models.MessageWithSender
	if val := args.Get(0); val != nil {
		list = val.([]models.MessageWithSender)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkSeen(ctx context.Context, messageID int, ts time.Time) error {
	args := m.Called(ctx, messageID, ts)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID int, senderID int) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, username string, email *string, passwordHash string) (models.User, error) {
	args := m.Called(ctx, username, email, passwordHash)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByID(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type FileRepositoryMock struct {
	mock.Mock
}

func (m *FileRepositoryMock) CreateFile(ctx context.Context, file models.File) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *FileRepositoryMock) GetFile(ctx context.Context, fileID string) (models.File, error) {
	args := m.Called(ctx, fileID)
	var file models.File
	if val := args.Get(0); val != nil {
		file = val.(models.File)
	}
	return file, args.Error(1)
}

type KeyRepositoryMock struct {
	mock.Mock
}

func (m *KeyRepositoryMock) AppendKeyVersion(ctx context.Context, wrapped []byte, ts time.Time) (models.KeyVersion, error) {
	args := m.Called(ctx, wrapped, ts)
	var kv models.KeyVersion
	if val := args.Get(0); val != nil {
		kv = val.(models.KeyVersion)
	}
	return kv, args.Error(1)
}

func (m *KeyRepositoryMock) LatestKeyVersion(ctx context.Context) (models.KeyVersion, error) {
	args := m.Called(ctx)
	var kv models.KeyVersion
	if val := args.Get(0); val != nil {
		kv = val.(models.KeyVersion)
	}
	return kv, args.Error(1)
}

var (
	_ repositories.ChatRepository    = (*ChatRepositoryMock)(nil)
	_ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
	_ repositories.UserRepository    = (*UserRepositoryMock)(nil)
	_ repositories.FileRepository    = (*FileRepositoryMock)(nil)
	_ repositories.KeyRepository     = (*KeyRepositoryMock)(nil)
)
