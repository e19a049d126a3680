// Package keys implements envelope encryption for uploaded content: a
// process-wide 256-bit content key, wrapped under an externally provisioned
// master key and persisted as an append-only version history. The master key
// only ever wraps and unwraps content keys, never user content.
package keys

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"chat-server/internal/repositories"
)

const keySize = 32

// ErrDecryption covers any AEAD open failure: wrong key, truncated blob, or
// tampered ciphertext. Callers never see partial plaintext.
var ErrDecryption = errors.New("decryption failed")

// Manager owns the active content key for the process lifetime.
type Manager struct {
	repo          repositories.KeyRepository
	master        []byte
	active        []byte
	activeVersion int
}

// NewManager constructs a Manager. The master key must be 32 bytes and is
// held only in memory.
func NewManager(repo repositories.KeyRepository, masterKey []byte) (*Manager, error) {
	if len(masterKey) != keySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", keySize, len(masterKey))
	}
	return &Manager{repo: repo, master: masterKey}, nil
}

// Bootstrap recovers the latest stored content key, minting and persisting a
// fresh one only when no version exists yet.
func (m *Manager) Bootstrap(ctx context.Context) error {
	err := m.LoadLatest(ctx)
	if errors.Is(err, repositories.ErrNoKeyVersions) {
		return m.Rotate(ctx)
	}
	return err
}

// Rotate mints a fresh random content key, wraps it under the master key,
// appends the wrapped blob as a new key version, and makes it the active key.
func (m *Manager) Rotate(ctx context.Context) error {
	content := make([]byte, keySize)
	if _, err := rand.Read(content); err != nil {
		return err
	}
	wrapped, err := Seal(m.master, content)
	if err != nil {
		return err
	}
	kv, err := m.repo.AppendKeyVersion(ctx, wrapped, time.Now().UTC())
	if err != nil {
		return err
	}
	m.active = content
	m.activeVersion = kv.ID
	return nil
}

// LoadLatest unwraps the most recent key version and makes it the active key.
func (m *Manager) LoadLatest(ctx context.Context) error {
	kv, err := m.repo.LatestKeyVersion(ctx)
	if err != nil {
		return err
	}
	content, err := Open(m.master, kv.WrappedKey)
	if err != nil {
		return err
	}
	m.active = content
	m.activeVersion = kv.ID
	return nil
}

// ActiveKey returns the in-memory content key.
func (m *Manager) ActiveKey() []byte {
	return m.active
}

// ActiveVersion returns the key version id backing the active key.
func (m *Manager) ActiveVersion() int {
	return m.activeVersion
}

// Seal authenticated-encrypts plaintext under key with a fresh random nonce.
// The nonce is prepended to the returned blob.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal.
func Open(key, blob []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize() {
		return nil, ErrDecryption
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
