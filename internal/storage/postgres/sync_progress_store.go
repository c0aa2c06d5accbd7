package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// SyncProgressStore is a PostgreSQL implementation of storage.SyncProgressStore.
// One row per watched account in sync_progress.
type SyncProgressStore struct {
	pool *Pool
}

// NewSyncProgressStore creates a new PostgreSQL sync progress store.
func NewSyncProgressStore(pool *Pool) *SyncProgressStore {
	return &SyncProgressStore{pool: pool}
}

// GetLastSynced returns the progress for account.
func (s *SyncProgressStore) GetLastSynced(ctx context.Context, account solana.PublicKey) (*storage.SyncProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT slot
		FROM sync_progress
		WHERE account = $1
	`, account.Bytes())

	var slot int64
	if err := row.Scan(&slot); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &storage.SyncProgress{Account: account, Slot: uint64(slot)}, nil
}

// SetLastSynced saves the progress for an account.
// Uses upsert to handle initial insert and subsequent updates.
func (s *SyncProgressStore) SetLastSynced(ctx context.Context, progress *storage.SyncProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_progress (account, slot, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account) DO UPDATE
		SET slot = EXCLUDED.slot,
		    updated_at = NOW()
	`, progress.Account.Bytes(), int64(progress.Slot))

	return err
}

var _ storage.SyncProgressStore = (*SyncProgressStore)(nil)
