package memory

import (
	"context"
	"sort"
	"sync"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/storage"
)

// AssessmentStore is an in-memory implementation of storage.AssessmentStore.
type AssessmentStore struct {
	mu   sync.RWMutex
	data map[entity.MarketKey]*domain.BadDebtAssessment
}

// NewAssessmentStore creates a new in-memory assessment store.
func NewAssessmentStore() *AssessmentStore {
	return &AssessmentStore{data: make(map[entity.MarketKey]*domain.BadDebtAssessment)}
}

// ReplaceAll atomically swaps the stored snapshot for the given rows.
func (s *AssessmentStore) ReplaceAll(_ context.Context, assessments []*domain.BadDebtAssessment) error {
	next := make(map[entity.MarketKey]*domain.BadDebtAssessment, len(assessments))
	for _, a := range assessments {
		if a == nil || a.MarketUniqueKey == "" {
			return storage.ErrInvalidInput
		}
		cp := *a
		next[entity.NewMarketKey(a.MarketUniqueKey, a.ChainID)] = &cp
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

// GetByKey retrieves an assessment by (market_key, chain_id).
func (s *AssessmentStore) GetByKey(_ context.Context, marketUniqueKey string, chainID int64) (*domain.BadDebtAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[entity.NewMarketKey(marketUniqueKey, chainID)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// GetByStatus retrieves all assessments with a given classification.
func (s *AssessmentStore) GetByStatus(_ context.Context, status domain.BadDebtStatus) ([]*domain.BadDebtAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BadDebtAssessment
	for _, a := range s.data {
		if a.Status == status {
			cp := *a
			result = append(result, &cp)
		}
	}
	sortAssessments(result)
	return result, nil
}

// GetAll retrieves the full snapshot, ordered by (chain_id, market_key).
func (s *AssessmentStore) GetAll(_ context.Context) ([]*domain.BadDebtAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BadDebtAssessment, 0, len(s.data))
	for _, a := range s.data {
		cp := *a
		result = append(result, &cp)
	}
	sortAssessments(result)
	return result, nil
}

func sortAssessments(assessments []*domain.BadDebtAssessment) {
	sort.Slice(assessments, func(i, j int) bool {
		if assessments[i].ChainID != assessments[j].ChainID {
			return assessments[i].ChainID < assessments[j].ChainID
		}
		return assessments[i].MarketUniqueKey < assessments[j].MarketUniqueKey
	})
}

var _ storage.AssessmentStore = (*AssessmentStore)(nil)
