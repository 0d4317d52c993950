package morpho

import (
	"fmt"
	"strings"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
)

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func convertAsset(raw *rawAsset, chainID int64) domain.Asset {
	if raw == nil {
		return domain.Asset{ChainID: chainID}
	}
	return domain.Asset{
		ChainID:      chainID,
		Address:      lower(raw.Address),
		Symbol:       raw.Symbol,
		Name:         raw.Name,
		Decimals:     int(entity.Int(raw.Decimals)),
		SpotPriceUSD: entity.FloatPtr(raw.PriceUsd),
	}
}

func convertOracle(raw *rawOracle) domain.OracleDescriptor {
	if raw == nil {
		return domain.OracleDescriptor{}
	}
	desc := domain.OracleDescriptor{
		Address: lower(raw.Address),
		Type:    raw.Type,
	}
	if d := raw.Data; d != nil {
		addr := func(a *rawAddress) string {
			if a == nil {
				return ""
			}
			return lower(a.Address)
		}
		desc.BaseFeedOne = addr(d.BaseFeedOne)
		desc.BaseFeedTwo = addr(d.BaseFeedTwo)
		desc.QuoteFeedOne = addr(d.QuoteFeedOne)
		desc.QuoteFeedTwo = addr(d.QuoteFeedTwo)
		desc.BaseVault = addr(d.BaseOracleVault)
		desc.QuoteVault = addr(d.QuoteOracleVault)
		desc.ScaleFactor = asString(d.ScaleFactor)
	}
	return desc
}

func convertMarketState(raw *rawMarketState) domain.MarketState {
	if raw == nil {
		return domain.MarketState{}
	}
	return domain.MarketState{
		Timestamp:           entity.Int(raw.Timestamp),
		BlockNumber:         entity.Int(raw.BlockNumber),
		SupplyAssets:        entity.Float(raw.SupplyAssets),
		BorrowAssets:        entity.Float(raw.BorrowAssets),
		CollateralAssets:    entity.Float(raw.CollateralAssets),
		LiquidityAssets:     entity.Float(raw.LiquidityAssets),
		SupplyAssetsUSD:     entity.Float(raw.SupplyAssetsUsd),
		BorrowAssetsUSD:     entity.Float(raw.BorrowAssetsUsd),
		CollateralAssetsUSD: entity.Float(raw.CollateralAssetsUsd),
		LiquidityAssetsUSD:  entity.Float(raw.LiquidityAssetsUsd),
		Utilization:         entity.Float(raw.Utilization),
		OraclePriceRaw:      entity.Float(raw.Price),
	}
}

func convertWarnings(raws []rawWarning) []domain.MarketWarning {
	if len(raws) == 0 {
		return nil
	}
	out := make([]domain.MarketWarning, 0, len(raws))
	for _, w := range raws {
		mw := domain.MarketWarning{Type: w.Type, Level: w.Level}
		if w.Metadata != nil {
			mw.BadDebtUSD = entity.Float(w.Metadata["badDebtUsd"])
			mw.BadDebtShare = entity.Float(w.Metadata["badDebtShare"])
		}
		out = append(out, mw)
	}
	return out
}

func (c *Client) convertMarket(raw *rawMarket, chainID int64) domain.Market {
	m := domain.Market{
		UniqueKey:         lower(raw.UniqueKey),
		ChainID:           chainID,
		Chain:             c.chainName(chainID),
		Listed:            raw.Listed,
		CreationTimestamp: entity.Int(raw.CreationTimestamp),
		CollateralAsset:   convertAsset(raw.CollateralAsset, chainID),
		LoanAsset:         convertAsset(raw.LoanAsset, chainID),
		LiquidationLTV:    entity.Float(raw.Lltv) / 1e18,
		Oracle:            convertOracle(raw.Oracle),
		State:             convertMarketState(raw.State),
		Warnings:          convertWarnings(raw.Warnings),
	}
	if raw.BadDebt != nil {
		m.BadDebtUSD = entity.Float(raw.BadDebt.USD)
		m.BadDebtUnderlying = entity.Float(raw.BadDebt.Underlying)
	}
	if raw.RealizedBadDebt != nil {
		m.RealizedBadDebtUSD = entity.Float(raw.RealizedBadDebt.USD)
		m.RealizedBadDebtUnderlying = entity.Float(raw.RealizedBadDebt.Underlying)
	}
	for _, v := range raw.SupplyingVaults {
		m.SupplyingVaults = append(m.SupplyingVaults, domain.VaultRef{
			Address: lower(v.Address),
			Name:    v.Name,
		})
	}
	return m
}

func convertAllocation(raw rawAllocation) domain.VaultAllocation {
	a := domain.VaultAllocation{
		SupplyAssets:    entity.Float(raw.SupplyAssets),
		SupplyAssetsUSD: entity.Float(raw.SupplyAssetsUsd),
		SupplyCap:       entity.Float(raw.SupplyCap),
		SupplyCapUSD:    entity.Float(raw.SupplyCapUsd),
		Enabled:         raw.Enabled,
		RemovableAt:     entity.Int(raw.RemovableAt),
	}
	if raw.Market != nil {
		a.MarketUniqueKey = lower(raw.Market.UniqueKey)
		if raw.Market.CollateralAsset != nil {
			a.CollateralSymbol = raw.Market.CollateralAsset.Symbol
		}
		if raw.Market.LoanAsset != nil {
			a.LoanSymbol = raw.Market.LoanAsset.Symbol
		}
	}
	return a
}

// convertVault builds a domain vault. The chain id embedded in the payload
// wins; fallbackChainID covers responses that omit the chain object.
func (c *Client) convertVault(raw *rawVault, fallbackChainID int64) domain.Vault {
	chainID := fallbackChainID
	if raw.Chain != nil {
		if id := entity.Int(raw.Chain.ID); id != 0 {
			chainID = id
		}
	}
	v := domain.Vault{
		Address:           lower(raw.Address),
		ChainID:           chainID,
		Chain:             c.chainName(chainID),
		Name:              raw.Name,
		Symbol:            raw.Symbol,
		Listed:            raw.Listed,
		CreationTimestamp: entity.Int(raw.CreationTimestamp),
	}
	if st := raw.State; st != nil {
		v.CuratorAddress = lower(st.Curator)
		v.Owner = lower(st.Owner)
		v.Guardian = lower(st.Guardian)
		v.TimelockSeconds = entity.Int(st.Timelock)
		v.TotalAssetsUSD = entity.Float(st.TotalAssetsUsd)
		v.SharePrice = entity.Float(st.SharePrice)
		v.SharePriceUSD = entity.Float(st.SharePriceUsd)

		for _, cur := range st.Curators {
			if cur.Verified && cur.Name != "" {
				v.CuratorName = cur.Name
				v.CuratorVerified = true
				break
			}
		}
		if v.CuratorName == "" {
			for _, cur := range st.Curators {
				if cur.Name != "" {
					v.CuratorName = cur.Name
					break
				}
			}
		}
		if v.CuratorName == "" {
			v.CuratorName = v.CuratorAddress
		}

		for _, alloc := range st.Allocation {
			v.Allocations = append(v.Allocations, convertAllocation(alloc))
		}
	}
	return v
}

func convertReallocation(raw rawReallocate, chainID int64) domain.ReallocationEvent {
	ev := domain.ReallocationEvent{
		ChainID:     chainID,
		Type:        raw.Type,
		Timestamp:   entity.Int(raw.Timestamp),
		TxHash:      raw.Hash,
		BlockNumber: entity.Int(raw.BlockNumber),
		Caller:      lower(raw.Caller),
		Assets:      entity.Float(raw.Assets),
		Shares:      entity.Float(raw.Shares),
	}
	if raw.Vault != nil {
		ev.VaultAddress = lower(raw.Vault.Address)
		ev.VaultName = raw.Vault.Name
	}
	if raw.Market != nil {
		ev.MarketUniqueKey = lower(raw.Market.UniqueKey)
	}
	return ev
}
