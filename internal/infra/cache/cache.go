// Package cache provides the in-memory token cache used by the card relay.
// In a multi-instance deployment each instance keeps its own slot.
package cache

import (
	"sync"
	"time"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
)

// TokenSlot is a thread-safe single-slot cache for an access token.
// Concurrent refreshes are not deduplicated: the last Set wins.
type TokenSlot struct {
	mu    sync.RWMutex
	token domain.AccessToken
}

// NewTokenSlot creates an empty slot.
func NewTokenSlot() *TokenSlot {
	return &TokenSlot{}
}

// Get returns the cached token. Returns false if empty or expired at now.
func (c *TokenSlot) Get(now time.Time) (domain.AccessToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.token.ValidAt(now) {
		return domain.AccessToken{}, false
	}
	return c.token, true
}

// Set replaces the cached token.
func (c *TokenSlot) Set(token domain.AccessToken) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

// Clear empties the slot.
func (c *TokenSlot) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = domain.AccessToken{}
}
