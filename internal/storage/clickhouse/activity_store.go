package clickhouse

import (
	"context"
	"fmt"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// ActivityStore implements storage.ActivityStore using ClickHouse.
// Keys are stored as base58 text.
type ActivityStore struct {
	conn *Conn
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(conn *Conn) *ActivityStore {
	return &ActivityStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

// Insert adds a new activity. Returns ErrDuplicateKey if activity_id exists.
func (s *ActivityStore) Insert(ctx context.Context, a *domain.Activity) error {
	if a == nil || a.ActivityID == "" || !a.Kind.IsValid() {
		return storage.ErrInvalidInput
	}

	// ReplacingMergeTree would silently collapse duplicates; keep append-only semantics.
	exists, err := s.exists(ctx, a.ActivityID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO sale_activities (
			activity_id, run_id, sale, investor, kind, sequence, units, payment, ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		a.ActivityID, a.RunID, a.Sale.String(), a.Investor.String(), string(a.Kind),
		a.Sequence, a.Units, a.Payment, a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// GetBySale retrieves all activities of a sale, ordered by sequence ASC.
func (s *ActivityStore) GetBySale(ctx context.Context, sale solana.PublicKey) ([]*domain.Activity, error) {
	query := `
		SELECT activity_id, run_id, sale, investor, kind, sequence, units, payment, ts
		FROM sale_activities FINAL
		WHERE sale = ?
		ORDER BY sequence ASC, activity_id ASC
	`

	rows, err := s.conn.Query(ctx, query, sale.String())
	if err != nil {
		return nil, fmt.Errorf("query by sale: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

// GetByParticipant retrieves the activities investor signed in sale, ordered by sequence ASC.
func (s *ActivityStore) GetByParticipant(ctx context.Context, sale, investor solana.PublicKey) ([]*domain.Activity, error) {
	query := `
		SELECT activity_id, run_id, sale, investor, kind, sequence, units, payment, ts
		FROM sale_activities FINAL
		WHERE sale = ? AND investor = ?
		ORDER BY sequence ASC, activity_id ASC
	`

	rows, err := s.conn.Query(ctx, query, sale.String(), investor.String())
	if err != nil {
		return nil, fmt.Errorf("query by participant: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

func (s *ActivityStore) exists(ctx context.Context, activityID string) (bool, error) {
	query := `SELECT count(*) FROM sale_activities FINAL WHERE activity_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, activityID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanActivities(rows chRows) ([]*domain.Activity, error) {
	var result []*domain.Activity
	for rows.Next() {
		var (
			a              domain.Activity
			sale, investor string
			kind           string
		)
		err := rows.Scan(&a.ActivityID, &a.RunID, &sale, &investor, &kind, &a.Sequence, &a.Units, &a.Payment, &a.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.Sale, err = solana.PublicKeyFromBase58(sale); err != nil {
			return nil, err
		}
		if a.Investor, err = solana.PublicKeyFromBase58(investor); err != nil {
			return nil, err
		}
		a.Kind = domain.ActivityKind(kind)
		result = append(result, &a)
	}
	return result, rows.Err()
}
