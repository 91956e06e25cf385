package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	store := NewMemoryStore()

	account, err := store.Create(context.Background(), "John", "Doe", "john.doe@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.NotEmpty(t, account.APIKey)
	assert.Equal(t, "john.doe@example.com", account.Email)

	found, err := store.Lookup(context.Background(), account.APIKey)
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
}

func TestMemoryStore_DuplicateEmailRejected(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Create(context.Background(), "John", "Doe", "john.doe@example.com")
	require.NoError(t, err)

	_, err = store.Create(context.Background(), "Jane", "Doe", "john.doe@example.com")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestMemoryStore_LookupUnknownKey(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Lookup(context.Background(), "no-such-key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewAPIKey_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := NewAPIKey()
		require.NoError(t, err)
		assert.NotEmpty(t, key)
		assert.False(t, seen[key], "keys must be unique")
		seen[key] = true
	}
}
