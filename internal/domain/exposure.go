package domain

// DiscoveryMethod records which discovery phase produced an exposure row.
type DiscoveryMethod string

const (
	// DiscoveredByAllocation means the vault's current allocation list
	// includes the toxic market (fresh, authoritative data).
	DiscoveredByAllocation DiscoveryMethod = "current_allocation"

	// DiscoveredByReallocation means the vault only appears in the historical
	// reallocation log for the market (already exited).
	DiscoveredByReallocation DiscoveryMethod = "historical_reallocation"

	// DiscoveredByBackfill means the vault record was fetched individually
	// after being found only in the reallocation log.
	DiscoveredByBackfill DiscoveryMethod = "individual_backfill"
)

// ExposureStatus classifies the current state of a vault-market exposure.
type ExposureStatus string

const (
	StatusActiveExposure       ExposureStatus = "ACTIVE_EXPOSURE"
	StatusFullyExited          ExposureStatus = "FULLY_EXITED"
	StatusStoppedSupplying     ExposureStatus = "STOPPED_SUPPLYING"
	StatusWithdrewPreCrisis    ExposureStatus = "WITHDREW_PRE_CRISIS"
	StatusWithdrewDuringCrisis ExposureStatus = "WITHDREW_DURING_CRISIS"
	StatusHistoricallyExposed  ExposureStatus = "HISTORICALLY_EXPOSED"
)

// Exposure is the relationship entity between a vault and a toxic market.
// At most one row exists per (vault_address, market_key) pair.
type Exposure struct {
	VaultAddress string
	VaultName    string
	ChainID      int64
	Chain        string
	CuratorName  string

	MarketUniqueKey  string
	CollateralSymbol string
	LoanSymbol       string
	LiquidationLTV   float64

	SupplyAssets    float64
	SupplyAssetsUSD float64
	SupplyCap       float64
	SupplyCapUSD    float64
	RemovableAt     int64

	VaultTotalAssetsUSD  float64
	VaultSharePrice      float64
	VaultTimelockSeconds int64

	// ExposurePct is the allocation as a share of vault TVL.
	ExposurePct float64

	Status          ExposureStatus
	DiscoveryMethod DiscoveryMethod

	// LowConfidence marks a historical attribution that fell back to "first
	// toxic market on the same chain" because the reallocation log carried no
	// specific market key for this vault.
	LowConfidence bool
}
