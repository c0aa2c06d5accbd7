package storage

import (
	"context"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
)

// AccountStore holds account state: the ledger's working set, or a mirror of
// cluster accounts kept by the watcher.
type AccountStore interface {
	// Get retrieves an account by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, key solana.PublicKey) (*solana.AccountInfo, error)

	// Put creates or replaces one account.
	Put(ctx context.Context, acc solana.KeyedAccount) error

	// PutBulk creates or replaces several accounts atomically. Either all are written or none.
	PutBulk(ctx context.Context, accs []solana.KeyedAccount) error

	// ListByOwner retrieves all accounts owned by owner, ordered by address.
	ListByOwner(ctx context.Context, owner solana.PublicKey) ([]solana.KeyedAccount, error)
}

// ActivityStore provides access to the append-only sale activity log.
type ActivityStore interface {
	// Insert adds a new activity. Returns ErrDuplicateKey if activity_id exists.
	Insert(ctx context.Context, a *domain.Activity) error

	// GetBySale retrieves all activities of a sale, ordered by sequence ASC.
	GetBySale(ctx context.Context, sale solana.PublicKey) ([]*domain.Activity, error)

	// GetByParticipant retrieves the activities investor signed in sale, ordered by sequence ASC.
	GetByParticipant(ctx context.Context, sale, investor solana.PublicKey) ([]*domain.Activity, error)
}
