package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/stockgate/stockgate/internal/models"
)

var (
	// ErrNotFound is returned by Lookup when no account owns the key.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicateEmail is returned by Create when the email is already
	// registered.
	ErrDuplicateEmail = errors.New("email address already registered")
)

// AccountStore persists signup records and resolves API keys back to
// accounts. Create is the only write; Lookup runs on every request.
type AccountStore interface {
	Create(ctx context.Context, name, lastName, email string) (*models.Account, error)
	Lookup(ctx context.Context, apiKey string) (*models.Account, error)
}

// NewAPIKey generates an opaque URL-safe bearer token from 16 random
// bytes.
func NewAPIKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
