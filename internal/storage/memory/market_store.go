// Package memory provides in-memory store implementations for tests and
// single-shot runs that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/storage"
)

// MarketStore is an in-memory implementation of storage.MarketStore.
type MarketStore struct {
	mu   sync.RWMutex
	data map[entity.MarketKey]*domain.Market
}

// NewMarketStore creates a new in-memory market store.
func NewMarketStore() *MarketStore {
	return &MarketStore{data: make(map[entity.MarketKey]*domain.Market)}
}

// ReplaceAll atomically swaps the stored snapshot for the given rows.
func (s *MarketStore) ReplaceAll(_ context.Context, markets []*domain.Market) error {
	next := make(map[entity.MarketKey]*domain.Market, len(markets))
	for _, m := range markets {
		if m == nil || m.UniqueKey == "" {
			return storage.ErrInvalidInput
		}
		cp := *m
		next[entity.NewMarketKey(m.UniqueKey, m.ChainID)] = &cp
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

// GetByKey retrieves a market by (unique_key, chain_id).
func (s *MarketStore) GetByKey(_ context.Context, uniqueKey string, chainID int64) (*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[entity.NewMarketKey(uniqueKey, chainID)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

// GetByChain retrieves all markets on a chain, ordered by unique_key ASC.
func (s *MarketStore) GetByChain(_ context.Context, chainID int64) ([]*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Market
	for _, m := range s.data {
		if m.ChainID == chainID {
			cp := *m
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UniqueKey < result[j].UniqueKey
	})
	return result, nil
}

// GetAll retrieves the full snapshot, ordered by (chain_id, unique_key).
func (s *MarketStore) GetAll(_ context.Context) ([]*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Market, 0, len(s.data))
	for _, m := range s.data {
		cp := *m
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ChainID != result[j].ChainID {
			return result[i].ChainID < result[j].ChainID
		}
		return result[i].UniqueKey < result[j].UniqueKey
	})
	return result, nil
}

var _ storage.MarketStore = (*MarketStore)(nil)
