package reporting

import (
	"fmt"
	"strconv"
	"strings"

	"morpho-exposure-lab/internal/domain"
)

// csvField quotes a value when it contains a delimiter, quote or newline.
// Vault and curator names come from the API unvalidated.
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// csvFloat renders a float without trailing zero noise.
func csvFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// csvFloatPtr renders a nullable float as empty when absent.
func csvFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return csvFloat(*v)
}

// RenderMarketsCSV renders the toxic market snapshot as a CSV string.
func RenderMarketsCSV(markets []*domain.Market) string {
	var sb strings.Builder

	sb.WriteString("unique_key,chain_id,chain,collateral_symbol,loan_symbol,lltv,")
	sb.WriteString("supply_assets_usd,borrow_assets_usd,collateral_assets_usd,liquidity_assets_usd,")
	sb.WriteString("utilization,collateral_price_usd,loan_price_usd,oracle_price_raw,")
	sb.WriteString("bad_debt_usd,realized_bad_debt_usd,oracle_type,listed,supplying_vault_count\n")

	for _, m := range markets {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%t,%d\n",
			m.UniqueKey,
			m.ChainID,
			csvField(m.Chain),
			csvField(m.CollateralAsset.Symbol),
			csvField(m.LoanAsset.Symbol),
			csvFloat(m.LiquidationLTV),
			csvFloat(m.State.SupplyAssetsUSD),
			csvFloat(m.State.BorrowAssetsUSD),
			csvFloat(m.State.CollateralAssetsUSD),
			csvFloat(m.State.LiquidityAssetsUSD),
			csvFloat(m.State.Utilization),
			csvFloatPtr(m.CollateralAsset.SpotPriceUSD),
			csvFloatPtr(m.LoanAsset.SpotPriceUSD),
			csvFloat(m.State.OraclePriceRaw),
			csvFloat(m.BadDebtUSD),
			csvFloat(m.RealizedBadDebtUSD),
			csvField(m.Oracle.Type),
			m.Listed,
			len(m.SupplyingVaults),
		))
	}

	return sb.String()
}

// RenderExposuresCSV renders vault-market exposure rows as a CSV string.
func RenderExposuresCSV(exposures []*domain.Exposure) string {
	var sb strings.Builder

	sb.WriteString("vault_address,vault_name,chain_id,chain,curator_name,market_unique_key,")
	sb.WriteString("collateral_symbol,loan_symbol,lltv,supply_assets_usd,supply_cap,supply_cap_usd,")
	sb.WriteString("removable_at,vault_total_assets_usd,exposure_pct,status,discovery_method,low_confidence\n")

	for _, e := range exposures {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%s,%s,%s,%s,%s,%s,%d,%s,%s,%s,%s,%t\n",
			e.VaultAddress,
			csvField(e.VaultName),
			e.ChainID,
			csvField(e.Chain),
			csvField(e.CuratorName),
			e.MarketUniqueKey,
			csvField(e.CollateralSymbol),
			csvField(e.LoanSymbol),
			csvFloat(e.LiquidationLTV),
			csvFloat(e.SupplyAssetsUSD),
			csvFloat(e.SupplyCap),
			csvFloat(e.SupplyCapUSD),
			e.RemovableAt,
			csvFloat(e.VaultTotalAssetsUSD),
			csvFloat(e.ExposurePct),
			string(e.Status),
			string(e.DiscoveryMethod),
			e.LowConfidence,
		))
	}

	return sb.String()
}

// RenderAssessmentsCSV renders bad-debt assessments as a CSV string.
func RenderAssessmentsCSV(assessments []*domain.BadDebtAssessment) string {
	var sb strings.Builder

	sb.WriteString("market_unique_key,chain_id,chain,collateral_symbol,loan_symbol,status,")
	sb.WriteString("gap_raw,gap_usd,layer1_loss_usd,has_layer1_debt,")
	sb.WriteString("layer2_reported_usd,layer2_realized_usd,layer2_total_usd,")
	sb.WriteString("oracle_implied_price_usd,oracle_spot_gap_pct,oracle_spot_gap_usd,")
	sb.WriteString("true_ltv,displayed_ltv,utilization,oracle_masking,best_estimate_usd,")
	sb.WriteString("oracle_type,oracle_is_hardcoded,oracle_is_vault_based\n")

	for _, a := range assessments {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%s,%s,%s,%s,%t,%s,%s,%s,%s,%s,%s,%s,%s,%s,%t,%s,%s,%t,%t\n",
			a.MarketUniqueKey,
			a.ChainID,
			csvField(a.Chain),
			csvField(a.CollateralSymbol),
			csvField(a.LoanSymbol),
			string(a.Status),
			csvFloat(a.GapRaw),
			csvFloat(a.GapUSD),
			csvFloat(a.Layer1LossUSD),
			a.HasLayer1Debt,
			csvFloat(a.Layer2ReportedUSD),
			csvFloat(a.Layer2RealizedUSD),
			csvFloat(a.Layer2TotalUSD),
			csvFloatPtr(a.OracleImpliedPriceUSD),
			csvFloatPtr(a.OracleSpotGapPct),
			csvFloatPtr(a.OracleSpotGapUSD),
			csvFloatPtr(a.TrueLTV),
			csvFloatPtr(a.DisplayedLTV),
			csvFloat(a.Utilization),
			a.OracleMasking,
			csvFloat(a.BestEstimateUSD),
			csvField(a.OracleType),
			a.OracleIsHardcoded,
			a.OracleIsVaultBased,
		))
	}

	return sb.String()
}

// RenderProfilesCSV renders curator response profiles as a CSV string.
func RenderProfilesCSV(profiles []*domain.CuratorResponseProfile) string {
	var sb strings.Builder

	sb.WriteString("vault_address,vault_name,chain_id,chain,curator_name,exposure_status,")
	sb.WriteString("vault_tvl_usd,peak_toxic_supply_usd,peak_toxic_ts,")
	sb.WriteString("alloc_at_crisis_usd,alloc_week_before_usd,")
	sb.WriteString("first_zero_alloc_ts,first_cap_zero_ts,first_toxic_withdraw_ts,last_toxic_withdraw_ts,")
	sb.WriteString("queue_removed_toxic_ts,toxic_withdraw_count,toxic_supply_count,admin_event_count,")
	sb.WriteString("earliest_action_ts,days_before_crisis,response_class\n")

	for _, p := range profiles {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%s,%s,%s,%s,%s,%d,%s,%s,%d,%d,%d,%d,%d,%d,%d,%d,%d,%s,%s\n",
			p.VaultAddress,
			csvField(p.VaultName),
			p.ChainID,
			csvField(p.Chain),
			csvField(p.CuratorName),
			string(p.ExposureStatus),
			csvFloat(p.VaultTVLUSD),
			csvFloat(p.PeakToxicSupplyUSD),
			p.PeakToxicTS,
			csvFloatPtr(p.AllocAtCrisisUSD),
			csvFloatPtr(p.AllocWeekBeforeUSD),
			p.FirstZeroAllocTS,
			p.FirstCapZeroTS,
			p.FirstToxicWithdrawTS,
			p.LastToxicWithdrawTS,
			p.QueueRemovedToxicTS,
			p.ToxicWithdrawCount,
			p.ToxicSupplyCount,
			p.AdminEventCount,
			p.EarliestActionTS,
			csvFloat(p.DaysBeforeCrisis),
			string(p.ResponseClass),
		))
	}

	return sb.String()
}
