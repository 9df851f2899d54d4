// Package session owns the persisted client session. Read, write and clear
// are the only operations; nothing else touches the stored tokens.
package session

import (
	"errors"
	"fmt"

	"cvscreen/internal/storage"
)

// ErrNoSession is returned when a protected operation runs without a stored
// token.
var ErrNoSession = errors.New("no active session")

// Session is the persisted auth state. A single instance exists per client.
type Session struct {
	Token        string
	RefreshToken string
}

// CredentialStore abstracts the durable key-value backend.
type CredentialStore interface {
	SetCredential(key, value string) error
	GetCredential(key string) (string, error)
	DeleteCredential(key string) error
}

// Manager mediates all access to the stored session.
type Manager struct {
	store CredentialStore
}

func NewManager(store CredentialStore) *Manager {
	return &Manager{store: store}
}

// Load returns the current session, or ErrNoSession when no token is
// stored. No validation of the token is performed: validity is discovered
// when a request fails.
func (m *Manager) Load() (Session, error) {
	token, err := m.store.GetCredential(storage.KeyAccessToken)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("reading session token: %w", err)
	}

	refresh, err := m.store.GetCredential(storage.KeyRefreshToken)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Session{}, fmt.Errorf("reading refresh token: %w", err)
	}

	return Session{Token: token, RefreshToken: refresh}, nil
}

// Save persists a new session, replacing any prior one.
func (m *Manager) Save(s Session) error {
	if s.Token == "" {
		return fmt.Errorf("refusing to save empty session token")
	}
	if err := m.store.SetCredential(storage.KeyAccessToken, s.Token); err != nil {
		return fmt.Errorf("saving session token: %w", err)
	}
	if s.RefreshToken != "" {
		if err := m.store.SetCredential(storage.KeyRefreshToken, s.RefreshToken); err != nil {
			return fmt.Errorf("saving refresh token: %w", err)
		}
		return nil
	}
	return m.store.DeleteCredential(storage.KeyRefreshToken)
}

// Clear removes both tokens unconditionally, regardless of prior state.
func (m *Manager) Clear() error {
	if err := m.store.DeleteCredential(storage.KeyAccessToken); err != nil {
		return fmt.Errorf("clearing session token: %w", err)
	}
	if err := m.store.DeleteCredential(storage.KeyRefreshToken); err != nil {
		return fmt.Errorf("clearing refresh token: %w", err)
	}
	return nil
}
