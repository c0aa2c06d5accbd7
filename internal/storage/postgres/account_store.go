package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
// u64 balances are stored bit-for-bit in BIGINT columns.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

const upsertAccountQuery = `
	INSERT INTO accounts (pubkey, owner, lamports, data, executable, rent_epoch, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	ON CONFLICT (pubkey) DO UPDATE
	SET owner = EXCLUDED.owner,
	    lamports = EXCLUDED.lamports,
	    data = EXCLUDED.data,
	    executable = EXCLUDED.executable,
	    rent_epoch = EXCLUDED.rent_epoch,
	    updated_at = NOW()
`

// Get retrieves an account by address. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(ctx context.Context, key solana.PublicKey) (*solana.AccountInfo, error) {
	query := `
		SELECT pubkey, owner, lamports, data, executable, rent_epoch
		FROM accounts
		WHERE pubkey = $1
	`

	acc, err := scanAccount(s.pool.QueryRow(ctx, query, key.Bytes()))
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acc.Account, nil
}

// Put creates or replaces one account.
func (s *AccountStore) Put(ctx context.Context, acc solana.KeyedAccount) error {
	if _, err := s.pool.Exec(ctx, upsertAccountQuery, accountArgs(acc)...); err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

// PutBulk creates or replaces several accounts in one transaction.
func (s *AccountStore) PutBulk(ctx context.Context, accs []solana.KeyedAccount) error {
	if len(accs) == 0 {
		return nil
	}

	seen := make(map[solana.PublicKey]struct{}, len(accs))
	for _, acc := range accs {
		if _, dup := seen[acc.Pubkey]; dup {
			return storage.ErrInvalidInput
		}
		seen[acc.Pubkey] = struct{}{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, acc := range accs {
		if _, err := tx.Exec(ctx, upsertAccountQuery, accountArgs(acc)...); err != nil {
			return fmt.Errorf("put account %s in bulk: %w", acc.Pubkey, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListByOwner retrieves all accounts owned by owner, ordered by address.
func (s *AccountStore) ListByOwner(ctx context.Context, owner solana.PublicKey) ([]solana.KeyedAccount, error) {
	query := `
		SELECT pubkey, owner, lamports, data, executable, rent_epoch
		FROM accounts
		WHERE owner = $1
		ORDER BY pubkey ASC
	`

	rows, err := s.pool.Query(ctx, query, owner.Bytes())
	if err != nil {
		return nil, fmt.Errorf("list accounts by owner: %w", err)
	}
	defer rows.Close()

	var result []solana.KeyedAccount
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		result = append(result, acc)
	}
	return result, rows.Err()
}

func accountArgs(acc solana.KeyedAccount) []any {
	data := acc.Account.Data
	if data == nil {
		data = []byte{}
	}
	return []any{
		acc.Pubkey.Bytes(),
		acc.Account.Owner.Bytes(),
		int64(acc.Account.Lamports),
		data,
		acc.Account.Executable,
		int64(acc.Account.RentEpoch),
	}
}

// scanAccount scans a single row into a KeyedAccount.
func scanAccount(row pgx.Row) (solana.KeyedAccount, error) {
	var (
		pubkey, owner       []byte
		lamports, rentEpoch int64
		acc                 solana.KeyedAccount
	)
	err := row.Scan(&pubkey, &owner, &lamports, &acc.Account.Data, &acc.Account.Executable, &rentEpoch)
	if err != nil {
		return acc, err
	}
	if acc.Pubkey, err = solana.PublicKeyFromBytes(pubkey); err != nil {
		return acc, err
	}
	if acc.Account.Owner, err = solana.PublicKeyFromBytes(owner); err != nil {
		return acc, err
	}
	acc.Account.Lamports = uint64(lamports)
	acc.Account.RentEpoch = uint64(rentEpoch)
	return acc, nil
}
