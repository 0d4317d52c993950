package domain

// AllocationPoint is one daily sample of a vault's allocation to a market.
type AllocationPoint struct {
	VaultAddress    string
	ChainID         int64
	MarketUniqueKey string
	Timestamp       int64
	SupplyAssetsUSD float64

	// SupplyCap is the raw cap sampled at the same timestamp; nil when the
	// cap series has no point for this day.
	SupplyCap *float64
}
