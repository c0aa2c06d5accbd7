package memory

import (
	"context"
	"sync"

	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// SyncProgressStore is an in-memory implementation of storage.SyncProgressStore.
type SyncProgressStore struct {
	mu       sync.RWMutex
	progress map[solana.PublicKey]uint64
}

// NewSyncProgressStore creates a new in-memory sync progress store.
func NewSyncProgressStore() *SyncProgressStore {
	return &SyncProgressStore{
		progress: make(map[solana.PublicKey]uint64),
	}
}

// GetLastSynced returns the progress for account.
func (s *SyncProgressStore) GetLastSynced(_ context.Context, account solana.PublicKey) (*storage.SyncProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.progress[account]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.SyncProgress{Account: account, Slot: slot}, nil
}

// SetLastSynced saves the progress for an account.
func (s *SyncProgressStore) SetLastSynced(_ context.Context, progress *storage.SyncProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[progress.Account] = progress.Slot
	return nil
}

var _ storage.SyncProgressStore = (*SyncProgressStore)(nil)
