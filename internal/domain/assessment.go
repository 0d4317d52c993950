package domain

// BadDebtStatus is the final classification of a market's bad-debt state.
type BadDebtStatus string

const (
	BadDebtConfirmed       BadDebtStatus = "BAD_DEBT_CONFIRMED"
	AtRiskFullUtilization  BadDebtStatus = "AT_RISK_FULL_UTILIZATION"
	OracleMispricing       BadDebtStatus = "ORACLE_MISPRICING"
	BadDebtNativeReported  BadDebtStatus = "BAD_DEBT_NATIVE_REPORTED"
	BadDebtHealthy         BadDebtStatus = "HEALTHY"
)

// BadDebtAssessment holds the three-layer bad-debt analysis for one market.
// Recomputed fully on each run; a pure function of a Market snapshot.
type BadDebtAssessment struct {
	MarketUniqueKey  string
	ChainID          int64
	Chain            string
	CollateralSymbol string
	LoanSymbol       string

	// Layer 1: supply-borrow gap in raw token units (oracle-independent).
	// A negative gap is proof of uncollateralized debt.
	GapRaw        float64
	GapUSD        float64
	Layer1LossUSD float64
	HasLayer1Debt bool

	// LiquidityDiscrepancy is liquidity - (supply - borrow) when the expected
	// gap is non-negative; nil otherwise.
	LiquidityDiscrepancy *float64

	// Layer 2: protocol-self-reported bad debt (unrealized + realized), USD.
	Layer2ReportedUSD float64
	Layer2RealizedUSD float64
	Layer2TotalUSD    float64

	// Layer 3: oracle-vs-spot price divergence.
	OracleImpliedPriceUSD *float64
	OracleSpotGapPct      *float64
	OracleSpotGapUSD      *float64
	TrueLTV               *float64
	DisplayedLTV          *float64

	Utilization float64

	Status BadDebtStatus

	// OracleMasking is true when Layer 1 shows a negative gap while the
	// protocol's own unrealized report is exactly zero.
	OracleMasking bool

	// BestEstimateUSD is max(Layer 1 loss, Layer 2 total, Layer 3 exposure):
	// the layers describe the same loss from different angles, so the maximum
	// is the conservative single number.
	BestEstimateUSD float64

	OracleType        string
	OracleAddress     string
	OracleIsHardcoded bool
	OracleIsVaultBased bool

	SupplyAssetsUSD     float64
	BorrowAssetsUSD     float64
	CollateralAssetsUSD float64

	StateTimestamp int64
}
