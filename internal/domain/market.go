package domain

// Market is an isolated lending pair identified by a protocol-assigned
// unique key plus chain id.
type Market struct {
	UniqueKey         string // protocol market key (hex), lower-cased
	ChainID           int64
	Chain             string // resolved chain name
	Listed            bool
	CreationTimestamp int64

	CollateralAsset Asset
	LoanAsset       Asset

	// LiquidationLTV is the protocol-configured liquidation threshold as a
	// fraction (raw value scaled down by 1e18).
	LiquidationLTV float64

	Oracle OracleDescriptor
	State  MarketState

	// Protocol-self-reported bad debt, taken at face value.
	BadDebtUSD                float64
	BadDebtUnderlying         float64
	RealizedBadDebtUSD        float64
	RealizedBadDebtUnderlying float64

	Warnings        []MarketWarning
	SupplyingVaults []VaultRef
}

// MarketState is the on-chain state snapshot of a market.
// Raw amounts are in the token's native unit, not USD.
type MarketState struct {
	Timestamp   int64
	BlockNumber int64

	SupplyAssets     float64
	BorrowAssets     float64
	CollateralAssets float64
	LiquidityAssets  float64

	SupplyAssetsUSD     float64
	BorrowAssetsUSD     float64
	CollateralAssetsUSD float64
	LiquidityAssetsUSD  float64

	Utilization float64

	// OraclePriceRaw is the oracle's fixed-point price:
	// (collateral_price / loan_price) * 10^(36 + loan_dec - collateral_dec).
	OraclePriceRaw float64
}

// OracleDescriptor captures a market's price oracle configuration.
type OracleDescriptor struct {
	Address string
	Type    string

	BaseFeedOne  string
	BaseFeedTwo  string
	QuoteFeedOne string
	QuoteFeedTwo string
	BaseVault    string
	QuoteVault   string
	ScaleFactor  string
}

// MarketWarning is a protocol-emitted warning attached to a market.
type MarketWarning struct {
	Type  string
	Level string

	// BadDebtShare metadata, present on unrealized-bad-debt warnings.
	BadDebtUSD   float64
	BadDebtShare float64
}

// VaultRef is a lightweight reference to a vault supplying into a market.
type VaultRef struct {
	Address string
	Name    string
}
