package pairstore

import (
	"context"
	"sync"
	"time"

	"keyward/internal/domain"
)

type memoryEntry struct {
	request  domain.PairingRequest
	deadline time.Time
}

// MemoryStore is an in-process domain.PairingStore with TTL eviction
// checked on access. Used by tests and single-device setups with no redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the store's time source, for expiry tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Put stores the request under (user, code) with the given TTL.
func (s *MemoryStore) Put(_ context.Context, request domain.PairingRequest, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[pairingKey(request.UserID, request.PairingCode)] = memoryEntry{
		request:  request,
		deadline: s.now().Add(ttl),
	}
	return nil
}

// Get returns the request for (user, code), if present and unexpired.
func (s *MemoryStore) Get(_ context.Context, userID domain.UserID, code string) (domain.PairingRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairingKey(userID, code)
	e, ok := s.entries[key]
	if !ok {
		return domain.PairingRequest{}, false, nil
	}
	if s.now().After(e.deadline) {
		delete(s.entries, key)
		return domain.PairingRequest{}, false, nil
	}
	return e.request, true, nil
}

// Delete removes the record for (user, code); idempotent.
func (s *MemoryStore) Delete(_ context.Context, userID domain.UserID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, pairingKey(userID, code))
	return nil
}

// List returns every unexpired pairing request for userID.
func (s *MemoryStore) List(_ context.Context, userID domain.UserID) ([]domain.PairingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.PairingRequest
	for key, e := range s.entries {
		if e.request.UserID != userID {
			continue
		}
		if s.now().After(e.deadline) {
			delete(s.entries, key)
			continue
		}
		out = append(out, e.request)
	}
	return out, nil
}

// Compile-time assertion that MemoryStore implements domain.PairingStore.
var _ domain.PairingStore = (*MemoryStore)(nil)
