// Package baddebt classifies per-market bad debt through three independent
// evidence layers: the raw supply-borrow gap, the protocol's own report,
// and the oracle-vs-spot price divergence. The layers are kept separate
// because markets with stale oracles can carry real losses the protocol
// reports as zero.
package baddebt

import (
	"math"

	"morpho-exposure-lab/internal/domain"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// oracleGapThreshold is the relative oracle-vs-spot divergence above which a
// market is flagged as mispriced.
const oracleGapThreshold = 0.10

// fullUtilizationThreshold marks a market where suppliers can no longer exit.
const fullUtilizationThreshold = 0.99

// Classifier turns market snapshots into bad-debt assessments.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Assess runs the three-layer analysis on one market snapshot.
func (c *Classifier) Assess(market domain.Market) domain.BadDebtAssessment {
	state := market.State
	a := domain.BadDebtAssessment{
		MarketUniqueKey:     market.UniqueKey,
		ChainID:             market.ChainID,
		Chain:               market.Chain,
		CollateralSymbol:    market.CollateralAsset.Symbol,
		LoanSymbol:          market.LoanAsset.Symbol,
		Utilization:         state.Utilization,
		SupplyAssetsUSD:     state.SupplyAssetsUSD,
		BorrowAssetsUSD:     state.BorrowAssetsUSD,
		CollateralAssetsUSD: state.CollateralAssetsUSD,
		StateTimestamp:      state.Timestamp,
	}

	// Layer 1: the gap needs no oracle. Borrows exceeding supply means the
	// books already admit an uncollateralized hole.
	a.GapRaw = state.SupplyAssets - state.BorrowAssets
	a.GapUSD = state.SupplyAssetsUSD - state.BorrowAssetsUSD
	a.HasLayer1Debt = a.GapRaw < 0
	a.Layer1LossUSD = math.Abs(math.Min(0, a.GapUSD))

	if expected := state.SupplyAssets - state.BorrowAssets; expected >= 0 {
		d := state.LiquidityAssets - expected
		a.LiquidityDiscrepancy = &d
	}

	// Layer 2: the protocol's own numbers, taken at face value.
	a.Layer2ReportedUSD = market.BadDebtUSD
	a.Layer2RealizedUSD = market.RealizedBadDebtUSD
	a.Layer2TotalUSD = market.BadDebtUSD + market.RealizedBadDebtUSD

	// Layer 3: what the oracle claims the collateral is worth versus spot.
	c.assessOracle(market, &a)

	a.OracleMasking = a.HasLayer1Debt && market.BadDebtUSD == 0

	switch {
	case a.HasLayer1Debt:
		a.Status = domain.BadDebtConfirmed
	case a.Utilization >= fullUtilizationThreshold:
		a.Status = domain.AtRiskFullUtilization
	case a.OracleSpotGapPct != nil && *a.OracleSpotGapPct > oracleGapThreshold:
		a.Status = domain.OracleMispricing
	case a.Layer2TotalUSD > 0:
		a.Status = domain.BadDebtNativeReported
	default:
		a.Status = domain.BadDebtHealthy
	}

	a.BestEstimateUSD = math.Max(a.Layer1LossUSD, a.Layer2TotalUSD)
	if a.OracleSpotGapUSD != nil && *a.OracleSpotGapUSD > a.BestEstimateUSD {
		a.BestEstimateUSD = *a.OracleSpotGapUSD
	}

	c.describeOracle(market.Oracle, &a)
	return a
}

// assessOracle decodes the oracle's fixed-point price and compares it to the
// independently sourced spot price. The raw price is quoted as
// (collateral/loan) * 10^(36 + loan_dec - collateral_dec).
func (c *Classifier) assessOracle(market domain.Market, a *domain.BadDebtAssessment) {
	collSpot := market.CollateralAsset.SpotPrice()
	loanSpot := market.LoanAsset.SpotPrice()
	state := market.State

	if collSpot > 0 && loanSpot > 0 && state.OraclePriceRaw > 0 {
		scale := math.Pow(10, float64(36+market.LoanAsset.Decimals-market.CollateralAsset.Decimals))
		implied := (state.OraclePriceRaw / scale) * loanSpot
		a.OracleImpliedPriceUSD = &implied

		if implied > 0 {
			gapPct := (implied - collSpot) / implied
			a.OracleSpotGapPct = &gapPct

			if state.CollateralAssets > 0 {
				human := state.CollateralAssets / math.Pow(10, float64(market.CollateralAsset.Decimals))
				gapUSD := human * (implied - collSpot)
				a.OracleSpotGapUSD = &gapUSD
			}
		}
	}

	// True LTV values the collateral at spot instead of the oracle price.
	if state.CollateralAssets > 0 && collSpot > 0 {
		human := state.CollateralAssets / math.Pow(10, float64(market.CollateralAsset.Decimals))
		trueValue := human * collSpot
		if trueValue > 0 {
			ltv := state.BorrowAssetsUSD / trueValue
			a.TrueLTV = &ltv
		}
	}
	if state.CollateralAssetsUSD > 0 {
		ltv := state.BorrowAssetsUSD / state.CollateralAssetsUSD
		a.DisplayedLTV = &ltv
	}
}

// describeOracle derives the structural oracle flags from the feed config.
// No feeds and no vault means the price can never move: a hardcoded oracle.
func (c *Classifier) describeOracle(oracle domain.OracleDescriptor, a *domain.BadDebtAssessment) {
	a.OracleType = oracle.Type
	a.OracleAddress = oracle.Address

	// Feed config absent entirely (custom oracle or fallback query path):
	// nothing structural can be said about it.
	if oracle.BaseFeedOne == "" && oracle.BaseFeedTwo == "" &&
		oracle.QuoteFeedOne == "" && oracle.QuoteFeedTwo == "" &&
		oracle.BaseVault == "" && oracle.QuoteVault == "" && oracle.ScaleFactor == "" {
		return
	}

	live := func(addr string) bool {
		return addr != "" && addr != zeroAddress
	}

	a.OracleIsVaultBased = live(oracle.BaseVault) || live(oracle.QuoteVault)

	hasFeeds := live(oracle.BaseFeedOne) || live(oracle.BaseFeedTwo) ||
		live(oracle.QuoteFeedOne) || live(oracle.QuoteFeedTwo)
	a.OracleIsHardcoded = !hasFeeds && !a.OracleIsVaultBased
}
