// Package session persists the terminal's login: bearer token, cached user
// and the username remembered for the login prompt.
package session

import (
	"context"
	"sync"
	"time"

	"tokoku/client/internal/domain"
)

type Session struct {
	Token              string       `json:"token,omitempty"`
	User               *domain.User `json:"user,omitempty"`
	RememberedUsername string       `json:"rememberedUsername,omitempty"`
	SavedAt            time.Time    `json:"savedAt"`
}

// Authenticated reports whether a token is held.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Store is where a session lives between runs.
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	// Clear drops the token and cached user but keeps the remembered username.
	Clear(ctx context.Context) error
}

// clearCredentials implements Clear on top of Load and Save.
func clearCredentials(ctx context.Context, store Store) error {
	current, err := store.Load(ctx)
	if err != nil {
		current = Session{}
	}
	return store.Save(ctx, Session{RememberedUsername: current.RememberedUsername})
}

type MemoryStore struct {
	mu      sync.Mutex
	current Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.SavedAt = time.Now().UTC()
	m.current = s
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	return clearCredentials(ctx, m)
}
