// Package revocation keeps the token revocation list (TRL) consulted on every
// authenticated request. Logged-out tokens stay listed until they would have
// expired anyway, so entries carry a TTL.
package revocation

import (
	"context"
	"sync"
	"time"
)

// TokenRevocationList records revoked token ids (jti claims).
type TokenRevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// InMemoryTRL is a process-local revocation list for single-instance
// deployments and tests.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	nowFn   func() time.Time
}

func NewInMemoryTRL() *InMemoryTRL {
	return &InMemoryTRL{
		revoked: make(map[string]time.Time),
		nowFn:   time.Now,
	}
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = t.nowFn().Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, ok := t.revoked[jti]
	if !ok {
		return false, nil
	}
	if t.nowFn().After(expiry) {
		delete(t.revoked, jti)
		return false, nil
	}
	return true, nil
}
