package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Activity // keyed by activity_id
}

// NewActivityStore creates a new in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		data: make(map[string]*domain.Activity),
	}
}

// Insert adds a new activity. Returns ErrDuplicateKey if activity_id exists.
func (s *ActivityStore) Insert(_ context.Context, a *domain.Activity) error {
	if a == nil || a.ActivityID == "" || !a.Kind.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ActivityID]; exists {
		return storage.ErrDuplicateKey
	}

	activityCopy := *a
	s.data[a.ActivityID] = &activityCopy
	return nil
}

// GetBySale retrieves all activities of a sale, ordered by sequence ASC.
func (s *ActivityStore) GetBySale(_ context.Context, sale solana.PublicKey) ([]*domain.Activity, error) {
	return s.filter(func(a *domain.Activity) bool { return a.Sale == sale }), nil
}

// GetByParticipant retrieves the activities investor signed in sale, ordered by sequence ASC.
func (s *ActivityStore) GetByParticipant(_ context.Context, sale, investor solana.PublicKey) ([]*domain.Activity, error) {
	return s.filter(func(a *domain.Activity) bool { return a.Sale == sale && a.Investor == investor }), nil
}

func (s *ActivityStore) filter(match func(*domain.Activity) bool) []*domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Activity
	for _, a := range s.data {
		if match(a) {
			activityCopy := *a
			result = append(result, &activityCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Sequence != result[j].Sequence {
			return result[i].Sequence < result[j].Sequence
		}
		return result[i].ActivityID < result[j].ActivityID
	})
	return result
}

// Verify interface compliance at compile time.
var _ storage.ActivityStore = (*ActivityStore)(nil)
