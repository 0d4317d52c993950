package domain

// Vault is a pooled-deposit contract identified by (address, chain_id).
type Vault struct {
	Address           string // lower-cased hex
	ChainID           int64
	Chain             string
	Name              string
	Symbol            string
	Listed            bool
	CreationTimestamp int64

	// CuratorName is the resolved curator identity: the first verified curator
	// entry's name when present, else the raw curator admin address.
	CuratorName     string
	CuratorAddress  string
	CuratorVerified bool

	Owner           string
	Guardian        string
	TimelockSeconds int64

	TotalAssetsUSD float64
	SharePrice     float64
	SharePriceUSD  float64

	// Allocations is the live allocation snapshot across all markets.
	Allocations []VaultAllocation
}

// VaultAllocation is one entry of a vault's current allocation list.
type VaultAllocation struct {
	MarketUniqueKey  string
	CollateralSymbol string
	LoanSymbol       string

	SupplyAssets    float64
	SupplyAssetsUSD float64
	SupplyCap       float64
	SupplyCapUSD    float64

	Enabled bool

	// RemovableAt is the queue-removal timestamp, 0 when none is scheduled.
	RemovableAt int64
}
