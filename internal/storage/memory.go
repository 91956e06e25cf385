package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stockgate/stockgate/internal/models"
)

// MemoryStore keeps accounts in process memory. It backs the server when
// DB_URI is not set and is the store used by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byKey   map[string]*models.Account
	byEmail map[string]*models.Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey:   make(map[string]*models.Account),
		byEmail: make(map[string]*models.Account),
	}
}

func (s *MemoryStore) Create(_ context.Context, name, lastName, email string) (*models.Account, error) {
	key, err := NewAPIKey()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return nil, ErrDuplicateEmail
	}
	account := &models.Account{
		ID:        uuid.NewString(),
		Name:      name,
		LastName:  lastName,
		Email:     email,
		APIKey:    key,
		CreatedAt: time.Now().UTC(),
	}
	s.byKey[key] = account
	s.byEmail[email] = account
	return account, nil
}

func (s *MemoryStore) Lookup(_ context.Context, apiKey string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.byKey[apiKey]
	if !ok {
		return nil, ErrNotFound
	}
	return account, nil
}
