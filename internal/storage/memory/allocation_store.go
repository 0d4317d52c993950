package memory

import (
	"context"
	"sort"
	"sync"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/storage"
)

type allocationKey struct {
	vault     entity.VaultKey
	market    string
	timestamp int64
}

// AllocationPointStore is an in-memory implementation of storage.AllocationPointStore.
type AllocationPointStore struct {
	mu   sync.RWMutex
	data map[allocationKey]*domain.AllocationPoint
}

// NewAllocationPointStore creates a new in-memory allocation point store.
func NewAllocationPointStore() *AllocationPointStore {
	return &AllocationPointStore{data: make(map[allocationKey]*domain.AllocationPoint)}
}

// InsertBulk adds multiple points. Fails the batch on any duplicate.
func (s *AllocationPointStore) InsertBulk(_ context.Context, points []*domain.AllocationPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]allocationKey, len(points))
	seen := make(map[allocationKey]struct{}, len(points))
	for i, p := range points {
		if p == nil || p.VaultAddress == "" || p.MarketUniqueKey == "" {
			return storage.ErrInvalidInput
		}
		key := allocationKey{
			vault:     entity.NewVaultKey(p.VaultAddress, p.ChainID),
			market:    p.MarketUniqueKey,
			timestamp: p.Timestamp,
		}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		keys[i] = key
	}

	for i, p := range points {
		cp := *p
		s.data[keys[i]] = &cp
	}
	return nil
}

// GetByVault retrieves all points for a vault, ordered by timestamp ASC.
func (s *AllocationPointStore) GetByVault(_ context.Context, vaultAddress string, chainID int64) ([]*domain.AllocationPoint, error) {
	vk := entity.NewVaultKey(vaultAddress, chainID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AllocationPoint
	for key, p := range s.data {
		if key.vault == vk {
			cp := *p
			result = append(result, &cp)
		}
	}
	sortPoints(result)
	return result, nil
}

// GetByVaultMarket retrieves a single series, ordered by timestamp ASC.
func (s *AllocationPointStore) GetByVaultMarket(_ context.Context, vaultAddress string, chainID int64, marketUniqueKey string) ([]*domain.AllocationPoint, error) {
	vk := entity.NewVaultKey(vaultAddress, chainID)
	mk := entity.NewMarketKey(marketUniqueKey, chainID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AllocationPoint
	for key, p := range s.data {
		if key.vault == vk && key.market == mk.UniqueKey {
			cp := *p
			result = append(result, &cp)
		}
	}
	sortPoints(result)
	return result, nil
}

// DeleteAll clears the series.
func (s *AllocationPointStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	s.data = make(map[allocationKey]*domain.AllocationPoint)
	s.mu.Unlock()
	return nil
}

func sortPoints(points []*domain.AllocationPoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].Timestamp != points[j].Timestamp {
			return points[i].Timestamp < points[j].Timestamp
		}
		return points[i].MarketUniqueKey < points[j].MarketUniqueKey
	})
}

var _ storage.AllocationPointStore = (*AllocationPointStore)(nil)
