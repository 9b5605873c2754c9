package memory

import (
	"context"
	"sync"
	"time"
)

// RevocationRegistry keeps revoked tokens in process memory
// Suitable for single instance deployments and tests; every instance has its own registry
type RevocationRegistry struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // token id -> token expiry
	now     func() time.Time
}

func NewRevocationRegistry(now func() time.Time) *RevocationRegistry {
	if now == nil {
		now = time.Now
	}

	return &RevocationRegistry{
		revoked: make(map[string]time.Time),
		now:     now,
	}
}

func (r *RevocationRegistry) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	if !r.now().Before(expiresAt) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[tokenID] = expiresAt
	return nil
}

func (r *RevocationRegistry) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.RLock()
	expiresAt, ok := r.revoked[tokenID]
	r.mu.RUnlock()

	return ok && r.now().Before(expiresAt), nil
}

// Purge drops entries of tokens expired at 'now' and returns how many were dropped
func (r *RevocationRegistry) Purge(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for id, expiresAt := range r.revoked {
		if !now.Before(expiresAt) {
			delete(r.revoked, id)
			purged++
		}
	}
	return purged, nil
}

// Len returns number of stored entries, including expired but not purged ones
func (r *RevocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}
