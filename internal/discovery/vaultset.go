package discovery

import (
	"sort"

	"morpho-exposure-lab/internal/entity"
)

// VaultSet accumulates vault addresses seen in the reallocation log together
// with the toxic market keys each one touched.
type VaultSet struct {
	markets map[entity.VaultKey]map[string]struct{}
}

// NewVaultSet creates an empty set.
func NewVaultSet() *VaultSet {
	return &VaultSet{markets: make(map[entity.VaultKey]map[string]struct{})}
}

// Add records a vault sighting. An empty market key still registers the
// vault, just without attribution.
func (s *VaultSet) Add(address string, chainID int64, marketKey string) {
	key := entity.NewVaultKey(address, chainID)
	if key.Address == "" {
		return
	}
	keys, ok := s.markets[key]
	if !ok {
		keys = make(map[string]struct{})
		s.markets[key] = keys
	}
	mk := entity.NewMarketKey(marketKey, chainID)
	if mk.UniqueKey != "" {
		keys[mk.UniqueKey] = struct{}{}
	}
}

// Len returns the number of distinct vaults seen.
func (s *VaultSet) Len() int {
	return len(s.markets)
}

// Keys returns every vault key in deterministic order.
func (s *VaultSet) Keys() []entity.VaultKey {
	keys := make([]entity.VaultKey, 0, len(s.markets))
	for k := range s.markets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Address != keys[j].Address {
			return keys[i].Address < keys[j].Address
		}
		return keys[i].ChainID < keys[j].ChainID
	})
	return keys
}

// MarketKeys returns the sorted market keys attributed to a vault.
func (s *VaultSet) MarketKeys(key entity.VaultKey) []string {
	set, ok := s.markets[key]
	if !ok || len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether the vault was seen.
func (s *VaultSet) Contains(key entity.VaultKey) bool {
	_, ok := s.markets[key]
	return ok
}
