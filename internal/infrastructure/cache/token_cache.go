package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	token     string
	expiresAt time.Time
}

// TokenCache provides thread-safe caching for portal auth tokens keyed by
// company and channel, with TTL support.
type TokenCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewTokenCache creates a new thread-safe token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached token for key if it's still valid.
func (c *TokenCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.token == "" {
		return "", false, nil
	}
	if !c.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.token, true, nil
}

// Set stores a token for key with the specified TTL.
func (c *TokenCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{token: token, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes the cached token for key.
func (c *TokenCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Len reports how many tokens are held, expired ones included.
func (c *TokenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
