package memory

import (
	"context"
	"sort"
	"sync"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/storage"
)

// ProfileStore is an in-memory implementation of storage.ProfileStore.
type ProfileStore struct {
	mu   sync.RWMutex
	data map[entity.VaultKey]*domain.CuratorResponseProfile
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{data: make(map[entity.VaultKey]*domain.CuratorResponseProfile)}
}

// ReplaceAll atomically swaps the stored snapshot for the given rows.
func (s *ProfileStore) ReplaceAll(_ context.Context, profiles []*domain.CuratorResponseProfile) error {
	next := make(map[entity.VaultKey]*domain.CuratorResponseProfile, len(profiles))
	for _, p := range profiles {
		if p == nil || p.VaultAddress == "" {
			return storage.ErrInvalidInput
		}
		cp := *p
		next[entity.NewVaultKey(p.VaultAddress, p.ChainID)] = &cp
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

// GetByVault retrieves a vault's profile.
func (s *ProfileStore) GetByVault(_ context.Context, vaultAddress string, chainID int64) (*domain.CuratorResponseProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[entity.NewVaultKey(vaultAddress, chainID)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetByClass retrieves all profiles in a response bucket.
func (s *ProfileStore) GetByClass(_ context.Context, class domain.ResponseClass) ([]*domain.CuratorResponseProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CuratorResponseProfile
	for _, p := range s.data {
		if p.ResponseClass == class {
			cp := *p
			result = append(result, &cp)
		}
	}
	sortProfiles(result)
	return result, nil
}

// GetAll retrieves the full snapshot, ordered by (vault_address, chain_id).
func (s *ProfileStore) GetAll(_ context.Context) ([]*domain.CuratorResponseProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CuratorResponseProfile, 0, len(s.data))
	for _, p := range s.data {
		cp := *p
		result = append(result, &cp)
	}
	sortProfiles(result)
	return result, nil
}

func sortProfiles(profiles []*domain.CuratorResponseProfile) {
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].VaultAddress != profiles[j].VaultAddress {
			return profiles[i].VaultAddress < profiles[j].VaultAddress
		}
		return profiles[i].ChainID < profiles[j].ChainID
	})
}

var _ storage.ProfileStore = (*ProfileStore)(nil)
