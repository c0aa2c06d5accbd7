package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
type AccountStore struct {
	mu   sync.RWMutex
	data map[solana.PublicKey]solana.AccountInfo
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		data: make(map[solana.PublicKey]solana.AccountInfo),
	}
}

// Get retrieves an account by address. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(_ context.Context, key solana.PublicKey) (*solana.AccountInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	accCopy := copyAccount(acc)
	return &accCopy, nil
}

// Put creates or replaces one account.
func (s *AccountStore) Put(_ context.Context, acc solana.KeyedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[acc.Pubkey] = copyAccount(acc.Account)
	return nil
}

// PutBulk creates or replaces several accounts atomically.
func (s *AccountStore) PutBulk(_ context.Context, accs []solana.KeyedAccount) error {
	seen := make(map[solana.PublicKey]struct{}, len(accs))
	for _, acc := range accs {
		if _, dup := seen[acc.Pubkey]; dup {
			return storage.ErrInvalidInput
		}
		seen[acc.Pubkey] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range accs {
		s.data[acc.Pubkey] = copyAccount(acc.Account)
	}
	return nil
}

// ListByOwner retrieves all accounts owned by owner, ordered by address.
func (s *AccountStore) ListByOwner(_ context.Context, owner solana.PublicKey) ([]solana.KeyedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []solana.KeyedAccount
	for key, acc := range s.data {
		if acc.Owner == owner {
			result = append(result, solana.KeyedAccount{Pubkey: key, Account: copyAccount(acc)})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return bytes.Compare(result[i].Pubkey[:], result[j].Pubkey[:]) < 0
	})

	return result, nil
}

// copyAccount detaches the data slice so callers cannot mutate stored state.
func copyAccount(acc solana.AccountInfo) solana.AccountInfo {
	acc.Data = append([]byte(nil), acc.Data...)
	return acc
}

// Verify interface compliance at compile time.
var _ storage.AccountStore = (*AccountStore)(nil)
