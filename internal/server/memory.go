package server

import (
	"context"
	"sync"
)

// MemoryStore is an in-process DirectoryStore and BackupStore for tests
// and single-node setups without postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	keys    map[string][]byte
	backups map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:    make(map[string][]byte),
		backups: make(map[string][]byte),
	}
}

// SavePublicKey upserts a published key.
func (s *MemoryStore) SavePublicKey(_ context.Context, userID string, publicKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[userID] = append([]byte(nil), publicKey...)
	return nil
}

// PublicKey returns the published key for userID, if any.
func (s *MemoryStore) PublicKey(_ context.Context, userID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[userID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), k...), true, nil
}

// SaveBackup upserts a backup blob.
func (s *MemoryStore) SaveBackup(_ context.Context, userID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups[userID] = append([]byte(nil), blob...)
	return nil
}

// Backup returns the backup blob for userID, if any.
func (s *MemoryStore) Backup(_ context.Context, userID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.backups[userID]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Compile-time assertions for both store roles.
var (
	_ DirectoryStore = (*MemoryStore)(nil)
	_ BackupStore    = (*MemoryStore)(nil)
)
