package storage

import (
	"context"
	"errors"
	"time"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
)

// QueryRecorder receives the duration and outcome of every store call.
type QueryRecorder interface {
	RecordDBQuery(database, operation string, seconds float64, err error)
}

// observe reports one call. ErrNotFound is an answer, not a failure.
func observe(rec QueryRecorder, database, operation string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	rec.RecordDBQuery(database, operation, time.Since(start).Seconds(), err)
}

// InstrumentedAccountStore wraps an AccountStore with query metrics.
type InstrumentedAccountStore struct {
	next     AccountStore
	rec      QueryRecorder
	database string
}

// InstrumentAccounts reports every call on next to rec under the database label.
func InstrumentAccounts(next AccountStore, rec QueryRecorder, database string) *InstrumentedAccountStore {
	return &InstrumentedAccountStore{next: next, rec: rec, database: database}
}

func (s *InstrumentedAccountStore) Get(ctx context.Context, key solana.PublicKey) (*solana.AccountInfo, error) {
	start := time.Now()
	acc, err := s.next.Get(ctx, key)
	observe(s.rec, s.database, "accounts_get", start, err)
	return acc, err
}

func (s *InstrumentedAccountStore) Put(ctx context.Context, acc solana.KeyedAccount) error {
	start := time.Now()
	err := s.next.Put(ctx, acc)
	observe(s.rec, s.database, "accounts_put", start, err)
	return err
}

func (s *InstrumentedAccountStore) PutBulk(ctx context.Context, accs []solana.KeyedAccount) error {
	start := time.Now()
	err := s.next.PutBulk(ctx, accs)
	observe(s.rec, s.database, "accounts_put_bulk", start, err)
	return err
}

func (s *InstrumentedAccountStore) ListByOwner(ctx context.Context, owner solana.PublicKey) ([]solana.KeyedAccount, error) {
	start := time.Now()
	accs, err := s.next.ListByOwner(ctx, owner)
	observe(s.rec, s.database, "accounts_list_by_owner", start, err)
	return accs, err
}

// InstrumentedActivityStore wraps an ActivityStore with query metrics.
type InstrumentedActivityStore struct {
	next     ActivityStore
	rec      QueryRecorder
	database string
}

// InstrumentActivities reports every call on next to rec under the database label.
func InstrumentActivities(next ActivityStore, rec QueryRecorder, database string) *InstrumentedActivityStore {
	return &InstrumentedActivityStore{next: next, rec: rec, database: database}
}

func (s *InstrumentedActivityStore) Insert(ctx context.Context, a *domain.Activity) error {
	start := time.Now()
	err := s.next.Insert(ctx, a)
	observe(s.rec, s.database, "activities_insert", start, err)
	return err
}

func (s *InstrumentedActivityStore) GetBySale(ctx context.Context, sale solana.PublicKey) ([]*domain.Activity, error) {
	start := time.Now()
	acts, err := s.next.GetBySale(ctx, sale)
	observe(s.rec, s.database, "activities_get_by_sale", start, err)
	return acts, err
}

func (s *InstrumentedActivityStore) GetByParticipant(ctx context.Context, sale, investor solana.PublicKey) ([]*domain.Activity, error) {
	start := time.Now()
	acts, err := s.next.GetByParticipant(ctx, sale, investor)
	observe(s.rec, s.database, "activities_get_by_participant", start, err)
	return acts, err
}

// InstrumentedSyncProgressStore wraps a SyncProgressStore with query metrics.
type InstrumentedSyncProgressStore struct {
	next     SyncProgressStore
	rec      QueryRecorder
	database string
}

// InstrumentProgress reports every call on next to rec under the database label.
func InstrumentProgress(next SyncProgressStore, rec QueryRecorder, database string) *InstrumentedSyncProgressStore {
	return &InstrumentedSyncProgressStore{next: next, rec: rec, database: database}
}

func (s *InstrumentedSyncProgressStore) GetLastSynced(ctx context.Context, account solana.PublicKey) (*SyncProgress, error) {
	start := time.Now()
	p, err := s.next.GetLastSynced(ctx, account)
	observe(s.rec, s.database, "sync_progress_get", start, err)
	return p, err
}

func (s *InstrumentedSyncProgressStore) SetLastSynced(ctx context.Context, progress *SyncProgress) error {
	start := time.Now()
	err := s.next.SetLastSynced(ctx, progress)
	observe(s.rec, s.database, "sync_progress_set", start, err)
	return err
}
