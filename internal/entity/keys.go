// Package entity provides canonical identifiers and safe coercion for raw
// records arriving from the query API. Addresses reach us in mixed case from
// different query paths; the canonical key is the sole join key downstream.
package entity

import "strings"

// VaultKey identifies a vault across all data sources.
type VaultKey struct {
	Address string // lower-cased hex
	ChainID int64
}

// NewVaultKey canonicalizes a raw address + chain id pair.
func NewVaultKey(address string, chainID int64) VaultKey {
	return VaultKey{Address: strings.ToLower(strings.TrimSpace(address)), ChainID: chainID}
}

// MarketKey identifies a market across all data sources.
type MarketKey struct {
	UniqueKey string // lower-cased hex
	ChainID   int64
}

// NewMarketKey canonicalizes a raw market key + chain id pair.
func NewMarketKey(uniqueKey string, chainID int64) MarketKey {
	return MarketKey{UniqueKey: strings.ToLower(strings.TrimSpace(uniqueKey)), ChainID: chainID}
}
