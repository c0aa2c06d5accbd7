package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// ActivityStore implements storage.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *Pool
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(pool *Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// Insert adds a new activity. Returns ErrDuplicateKey if activity_id exists.
func (s *ActivityStore) Insert(ctx context.Context, a *domain.Activity) error {
	if a == nil || a.ActivityID == "" || !a.Kind.IsValid() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sale_activities (
			activity_id, run_id, sale, investor, kind, sequence, units, payment, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ActivityID,
		a.RunID,
		a.Sale.Bytes(),
		a.Investor.Bytes(),
		string(a.Kind),
		int64(a.Sequence),
		int64(a.Units),
		int64(a.Payment),
		a.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// GetBySale retrieves all activities of a sale, ordered by sequence ASC.
func (s *ActivityStore) GetBySale(ctx context.Context, sale solana.PublicKey) ([]*domain.Activity, error) {
	query := `
		SELECT activity_id, run_id, sale, investor, kind, sequence, units, payment, ts
		FROM sale_activities
		WHERE sale = $1
		ORDER BY sequence ASC, activity_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sale.Bytes())
	if err != nil {
		return nil, fmt.Errorf("get activities by sale: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

// GetByParticipant retrieves the activities investor signed in sale, ordered by sequence ASC.
func (s *ActivityStore) GetByParticipant(ctx context.Context, sale, investor solana.PublicKey) ([]*domain.Activity, error) {
	query := `
		SELECT activity_id, run_id, sale, investor, kind, sequence, units, payment, ts
		FROM sale_activities
		WHERE sale = $1 AND investor = $2
		ORDER BY sequence ASC, activity_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sale.Bytes(), investor.Bytes())
	if err != nil {
		return nil, fmt.Errorf("get activities by participant: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

func scanActivities(rows pgx.Rows) ([]*domain.Activity, error) {
	var result []*domain.Activity
	for rows.Next() {
		var (
			a                        domain.Activity
			sale, investor           []byte
			kind                     string
			sequence, units, payment int64
		)
		err := rows.Scan(&a.ActivityID, &a.RunID, &sale, &investor, &kind, &sequence, &units, &payment, &a.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.Sale, err = solana.PublicKeyFromBytes(sale); err != nil {
			return nil, err
		}
		if a.Investor, err = solana.PublicKeyFromBytes(investor); err != nil {
			return nil, err
		}
		a.Kind = domain.ActivityKind(kind)
		a.Sequence = uint64(sequence)
		a.Units = uint64(units)
		a.Payment = uint64(payment)
		result = append(result, &a)
	}
	return result, rows.Err()
}
