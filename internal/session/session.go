// Package session keeps the API tokens of the signed-in account.
package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSession is returned when no tokens have been stored yet.
var ErrNoSession = errors.New("no session tokens stored")

// Store holds the token pair used to authorize API calls.
// SetTokens with an empty refresh token keeps the stored refresh token.
type Store interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (ms *MemoryStore) AccessToken(_ context.Context) (string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.access == "" {
		return "", ErrNoSession
	}
	return ms.access, nil
}

func (ms *MemoryStore) RefreshToken(_ context.Context) (string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.refresh == "" {
		return "", ErrNoSession
	}
	return ms.refresh, nil
}

func (ms *MemoryStore) SetTokens(_ context.Context, access, refresh string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.access = access
	if refresh != "" {
		ms.refresh = refresh
	}
	return nil
}

func (ms *MemoryStore) Clear(_ context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.access, ms.refresh = "", ""
	return nil
}
