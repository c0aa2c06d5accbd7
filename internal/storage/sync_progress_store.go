package storage

import (
	"context"

	"solana-token-sale/internal/solana"
)

// SyncProgress is the newest slot at which a watched account was mirrored.
type SyncProgress struct {
	Account solana.PublicKey
	Slot    uint64
}

// SyncProgressStore persists watcher progress so that a restarted watcher
// ignores notifications older than what it already mirrored.
type SyncProgressStore interface {
	// GetLastSynced returns the progress for account.
	// Returns ErrNotFound if the account was never synced.
	GetLastSynced(ctx context.Context, account solana.PublicKey) (*SyncProgress, error)

	// SetLastSynced saves the progress for an account, replacing any previous value.
	SetLastSynced(ctx context.Context, progress *SyncProgress) error
}
