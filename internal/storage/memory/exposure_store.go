package memory

import (
	"context"
	"sort"
	"sync"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/storage"
)

type exposureKey struct {
	vault  entity.VaultKey
	market string
}

// ExposureStore is an in-memory implementation of storage.ExposureStore.
type ExposureStore struct {
	mu   sync.RWMutex
	data map[exposureKey]*domain.Exposure
}

// NewExposureStore creates a new in-memory exposure store.
func NewExposureStore() *ExposureStore {
	return &ExposureStore{data: make(map[exposureKey]*domain.Exposure)}
}

// ReplaceAll atomically swaps the stored snapshot for the given rows.
func (s *ExposureStore) ReplaceAll(_ context.Context, exposures []*domain.Exposure) error {
	next := make(map[exposureKey]*domain.Exposure, len(exposures))
	for _, e := range exposures {
		if e == nil || e.VaultAddress == "" || e.MarketUniqueKey == "" {
			return storage.ErrInvalidInput
		}
		cp := *e
		key := exposureKey{entity.NewVaultKey(e.VaultAddress, e.ChainID), e.MarketUniqueKey}
		next[key] = &cp
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

// GetByVault retrieves all exposures of a vault, ordered by market key ASC.
func (s *ExposureStore) GetByVault(_ context.Context, vaultAddress string, chainID int64) ([]*domain.Exposure, error) {
	vk := entity.NewVaultKey(vaultAddress, chainID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Exposure
	for key, e := range s.data {
		if key.vault == vk {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MarketUniqueKey < result[j].MarketUniqueKey
	})
	return result, nil
}

// GetByMarket retrieves all exposures into a market, ordered by vault address ASC.
func (s *ExposureStore) GetByMarket(_ context.Context, marketUniqueKey string, chainID int64) ([]*domain.Exposure, error) {
	mk := entity.NewMarketKey(marketUniqueKey, chainID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Exposure
	for _, e := range s.data {
		if e.MarketUniqueKey == mk.UniqueKey && e.ChainID == chainID {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].VaultAddress < result[j].VaultAddress
	})
	return result, nil
}

// GetByStatus retrieves all exposures in a given state.
func (s *ExposureStore) GetByStatus(_ context.Context, status domain.ExposureStatus) ([]*domain.Exposure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Exposure
	for _, e := range s.data {
		if e.Status == status {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortExposures(result)
	return result, nil
}

// GetAll retrieves the full snapshot, ordered by (vault_address, chain_id, market_key).
func (s *ExposureStore) GetAll(_ context.Context) ([]*domain.Exposure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Exposure, 0, len(s.data))
	for _, e := range s.data {
		cp := *e
		result = append(result, &cp)
	}
	sortExposures(result)
	return result, nil
}

func sortExposures(exposures []*domain.Exposure) {
	sort.Slice(exposures, func(i, j int) bool {
		if exposures[i].VaultAddress != exposures[j].VaultAddress {
			return exposures[i].VaultAddress < exposures[j].VaultAddress
		}
		if exposures[i].ChainID != exposures[j].ChainID {
			return exposures[i].ChainID < exposures[j].ChainID
		}
		return exposures[i].MarketUniqueKey < exposures[j].MarketUniqueKey
	})
}

var _ storage.ExposureStore = (*ExposureStore)(nil)
