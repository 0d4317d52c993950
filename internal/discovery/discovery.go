// Package discovery reconstructs which vaults were exposed to toxic
// collateral markets. Current allocation lists only show vaults that are
// still in; the reallocation log recovers the ones that already left.
package discovery

import (
	"context"
	"errors"
	"log"
	"sort"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/morpho"
	"morpho-exposure-lab/internal/observability"
)

// Source is the query surface discovery needs from the API client.
type Source interface {
	MarketsByChain(ctx context.Context, chainID int64) ([]domain.Market, error)
	VaultsByMarketKeys(ctx context.Context, chainID int64, marketKeys []string) ([]domain.Vault, error)
	ReallocationsByMarketKeys(ctx context.Context, chainID int64, marketKeys []string) ([]domain.ReallocationEvent, error)
	VaultByAddress(ctx context.Context, address string, chainID int64) (*domain.Vault, error)
}

// Engine runs toxic market discovery and the three-phase vault scan.
type Engine struct {
	source      Source
	filter      *entity.ToxicFilter
	chains      map[int64]string
	crisisTS    int64
	preCrisisTS int64
	logger      *log.Logger
}

// Options configures an Engine.
type Options struct {
	Source      Source
	Filter      *entity.ToxicFilter
	Chains      map[int64]string
	CrisisTS    int64
	PreCrisisTS int64
	Logger      *log.Logger
}

// NewEngine creates a discovery engine.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		source:      opts.Source,
		filter:      opts.Filter,
		chains:      opts.Chains,
		crisisTS:    opts.CrisisTS,
		preCrisisTS: opts.PreCrisisTS,
		logger:      logger,
	}
}

// Result carries counters from a discovery run.
type Result struct {
	ChainsScanned     int
	ChainsFailed      int
	MarketsScanned    int
	ToxicMarkets      int
	Phase1Vaults      int
	Phase2Addresses   int
	Phase3Fetched     int
	Phase3Skipped     int
	Phase3Failed      int
	Exposures         int
	SyntheticRows     int
	LowConfidenceRows int
}

// sortedChainIDs returns the configured chain ids in ascending order so runs
// are deterministic.
func (e *Engine) sortedChainIDs() []int64 {
	ids := make([]int64, 0, len(e.chains))
	for id := range e.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// DiscoverToxicMarkets scans every configured chain for markets whose
// collateral symbol matches the toxic set. A failing chain is logged and
// skipped; one unreachable chain must not abort the scan.
func (e *Engine) DiscoverToxicMarkets(ctx context.Context) ([]domain.Market, *Result, error) {
	result := &Result{}
	var toxic []domain.Market

	for _, chainID := range e.sortedChainIDs() {
		select {
		case <-ctx.Done():
			return toxic, result, ctx.Err()
		default:
		}

		markets, err := e.source.MarketsByChain(ctx, chainID)
		if err != nil {
			e.logger.Printf("chain %s: market scan failed: %v", e.chains[chainID], err)
			result.ChainsFailed++
			observability.DefaultMetrics.ChainsFailed.Inc()
			continue
		}
		result.ChainsScanned++
		result.MarketsScanned += len(markets)

		for _, m := range markets {
			if e.filter.IsToxic(m.CollateralAsset.Symbol) {
				toxic = append(toxic, m)
				observability.DefaultMetrics.MarketsDiscovered.Inc()
			}
		}
	}

	result.ToxicMarkets = len(toxic)
	if len(toxic) == 0 && result.ChainsScanned > 0 {
		e.logger.Printf("no toxic markets found across %d chains", result.ChainsScanned)
	}
	return toxic, result, nil
}

// DiscoverExposures runs the three-phase vault scan over the given toxic
// markets and returns one exposure row per (vault, market) pair.
func (e *Engine) DiscoverExposures(ctx context.Context, toxicMarkets []domain.Market) ([]domain.Exposure, *Result, error) {
	result := &Result{}
	if len(toxicMarkets) == 0 {
		return nil, result, nil
	}

	marketsByKey := make(map[entity.MarketKey]domain.Market, len(toxicMarkets))
	keysByChain := make(map[int64][]string)
	for _, m := range toxicMarkets {
		key := entity.NewMarketKey(m.UniqueKey, m.ChainID)
		if _, seen := marketsByKey[key]; seen {
			continue
		}
		marketsByKey[key] = m
		keysByChain[m.ChainID] = append(keysByChain[m.ChainID], key.UniqueKey)
	}
	for _, keys := range keysByChain {
		sort.Strings(keys)
	}

	chainIDs := make([]int64, 0, len(keysByChain))
	for id := range keysByChain {
		chainIDs = append(chainIDs, id)
	}
	sort.Slice(chainIDs, func(i, j int) bool { return chainIDs[i] < chainIDs[j] })

	// Phase 1: vaults with a current allocation to a toxic market.
	phase1 := make(map[entity.VaultKey]domain.Vault)
	for _, chainID := range chainIDs {
		vaults, err := e.source.VaultsByMarketKeys(ctx, chainID, keysByChain[chainID])
		if err != nil {
			e.logger.Printf("chain %s: vault scan failed: %v", e.chains[chainID], err)
			result.ChainsFailed++
			observability.DefaultMetrics.ChainsFailed.Inc()
			continue
		}
		for _, v := range vaults {
			phase1[entity.NewVaultKey(v.Address, v.ChainID)] = v
		}
	}
	result.Phase1Vaults = len(phase1)
	observability.DefaultMetrics.VaultsDiscovered.WithLabelValues(string(domain.DiscoveredByAllocation)).Add(float64(len(phase1)))

	// Phase 2: every vault the reallocation log ever saw touch a toxic
	// market, with the market keys it touched.
	set := NewVaultSet()
	for _, chainID := range chainIDs {
		events, err := e.source.ReallocationsByMarketKeys(ctx, chainID, keysByChain[chainID])
		if err != nil {
			e.logger.Printf("chain %s: reallocation scan failed: %v", e.chains[chainID], err)
			result.ChainsFailed++
			observability.DefaultMetrics.ChainsFailed.Inc()
			continue
		}
		for _, ev := range events {
			set.Add(ev.VaultAddress, chainID, ev.MarketUniqueKey)
		}
	}
	result.Phase2Addresses = set.Len()

	// Phase 3: individual backfill of vaults the reallocation log found but
	// the current allocation scan did not.
	phase3 := make(map[entity.VaultKey]domain.Vault)
	for _, key := range set.Keys() {
		if _, present := phase1[key]; present {
			continue
		}
		vault, err := e.source.VaultByAddress(ctx, key.Address, key.ChainID)
		if err != nil {
			if errors.Is(err, morpho.ErrNotFound) {
				e.logger.Printf("vault %s chain %d: no data, backfill skipped", key.Address, key.ChainID)
				result.Phase3Skipped++
				continue
			}
			e.logger.Printf("vault %s chain %d: backfill failed: %v", key.Address, key.ChainID, err)
			result.Phase3Failed++
			continue
		}
		phase3[key] = *vault
		result.Phase3Fetched++
		observability.DefaultMetrics.VaultsDiscovered.WithLabelValues(string(domain.DiscoveredByBackfill)).Inc()
	}

	exposures := e.buildExposures(phase1, phase3, set, marketsByKey, keysByChain, result)
	result.Exposures = len(exposures)
	return exposures, result, nil
}

// buildExposures turns the three phases into deduplicated exposure rows.
// A current-allocation row always wins over a historical attribution for the
// same (vault, market) pair.
func (e *Engine) buildExposures(
	phase1, phase3 map[entity.VaultKey]domain.Vault,
	set *VaultSet,
	marketsByKey map[entity.MarketKey]domain.Market,
	keysByChain map[int64][]string,
	result *Result,
) []domain.Exposure {
	type pairKey struct {
		vault  entity.VaultKey
		market string
	}
	rows := make(map[pairKey]domain.Exposure)

	addCurrent := func(vault domain.Vault, method domain.DiscoveryMethod) {
		vk := entity.NewVaultKey(vault.Address, vault.ChainID)
		for _, alloc := range vault.Allocations {
			mk := entity.NewMarketKey(alloc.MarketUniqueKey, vault.ChainID)
			market, ok := marketsByKey[mk]
			if !ok {
				continue
			}
			exp := e.exposureFromAllocation(vault, alloc, market, method)
			rows[pairKey{vk, mk.UniqueKey}] = exp
		}
	}

	for _, vault := range phase1 {
		addCurrent(vault, domain.DiscoveredByAllocation)
	}
	for _, vault := range phase3 {
		addCurrent(vault, domain.DiscoveredByBackfill)
	}

	// Synthetic rows for vaults that exited entirely: no current allocation
	// survives, so the reallocation log's market keys are all we have.
	for _, vk := range set.Keys() {
		vault, fetched := phase3[vk]
		if !fetched {
			if v, inPhase1 := phase1[vk]; inPhase1 {
				vault = v
			} else {
				continue
			}
		}

		marketKeys := set.MarketKeys(vk)
		lowConfidence := false
		if len(marketKeys) == 0 {
			// The log carried no market key for this vault. Attribute to the
			// first toxic market on the same chain as a flagged guess.
			chainKeys := keysByChain[vk.ChainID]
			if len(chainKeys) == 0 {
				continue
			}
			marketKeys = chainKeys[:1]
			lowConfidence = true
			e.logger.Printf("vault %s chain %d: no market key in reallocation log, attributing to %s (low confidence)",
				vk.Address, vk.ChainID, marketKeys[0])
		}

		for _, marketKey := range marketKeys {
			pk := pairKey{vk, marketKey}
			if _, exists := rows[pk]; exists {
				continue
			}
			market, ok := marketsByKey[entity.NewMarketKey(marketKey, vk.ChainID)]
			if !ok {
				continue
			}
			rows[pk] = e.syntheticExposure(vault, market, lowConfidence)
			result.SyntheticRows++
			if lowConfidence {
				result.LowConfidenceRows++
			}
		}
	}

	out := make([]domain.Exposure, 0, len(rows))
	for _, exp := range rows {
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VaultAddress != out[j].VaultAddress {
			return out[i].VaultAddress < out[j].VaultAddress
		}
		if out[i].ChainID != out[j].ChainID {
			return out[i].ChainID < out[j].ChainID
		}
		return out[i].MarketUniqueKey < out[j].MarketUniqueKey
	})
	return out
}

func (e *Engine) exposureFromAllocation(vault domain.Vault, alloc domain.VaultAllocation, market domain.Market, method domain.DiscoveryMethod) domain.Exposure {
	exp := domain.Exposure{
		VaultAddress:         vault.Address,
		VaultName:            vault.Name,
		ChainID:              vault.ChainID,
		Chain:                vault.Chain,
		CuratorName:          vault.CuratorName,
		MarketUniqueKey:      entity.NewMarketKey(alloc.MarketUniqueKey, vault.ChainID).UniqueKey,
		CollateralSymbol:     market.CollateralAsset.Symbol,
		LoanSymbol:           market.LoanAsset.Symbol,
		LiquidationLTV:       market.LiquidationLTV,
		SupplyAssets:         alloc.SupplyAssets,
		SupplyAssetsUSD:      alloc.SupplyAssetsUSD,
		SupplyCap:            alloc.SupplyCap,
		SupplyCapUSD:         alloc.SupplyCapUSD,
		RemovableAt:          alloc.RemovableAt,
		VaultTotalAssetsUSD:  vault.TotalAssetsUSD,
		VaultSharePrice:      vault.SharePrice,
		VaultTimelockSeconds: vault.TimelockSeconds,
		DiscoveryMethod:      method,
	}
	if vault.TotalAssetsUSD > 0 {
		exp.ExposurePct = alloc.SupplyAssetsUSD / vault.TotalAssetsUSD
	}
	exp.Status = e.classifyStatus(exp)
	return exp
}

func (e *Engine) syntheticExposure(vault domain.Vault, market domain.Market, lowConfidence bool) domain.Exposure {
	return domain.Exposure{
		VaultAddress:         vault.Address,
		VaultName:            vault.Name,
		ChainID:              vault.ChainID,
		Chain:                vault.Chain,
		CuratorName:          vault.CuratorName,
		MarketUniqueKey:      entity.NewMarketKey(market.UniqueKey, market.ChainID).UniqueKey,
		CollateralSymbol:     market.CollateralAsset.Symbol,
		LoanSymbol:           market.LoanAsset.Symbol,
		LiquidationLTV:       market.LiquidationLTV,
		VaultTotalAssetsUSD:  vault.TotalAssetsUSD,
		VaultSharePrice:      vault.SharePrice,
		VaultTimelockSeconds: vault.TimelockSeconds,
		Status:               domain.StatusHistoricallyExposed,
		DiscoveryMethod:      domain.DiscoveredByReallocation,
		LowConfidence:        lowConfidence,
	}
}

// classifyStatus derives the exposure state from the live allocation record.
// Checked in order: a zero cap with a removal timestamp inside the crisis
// window beats the bare zero-cap reading, and only then does a zero balance
// count as a full exit.
func (e *Engine) classifyStatus(exp domain.Exposure) domain.ExposureStatus {
	if exp.SupplyCap == 0 {
		if exp.RemovableAt >= e.crisisTS {
			return domain.StatusWithdrewDuringCrisis
		}
		if exp.RemovableAt >= e.preCrisisTS {
			return domain.StatusWithdrewPreCrisis
		}
		return domain.StatusStoppedSupplying
	}
	if exp.SupplyAssets == 0 {
		return domain.StatusFullyExited
	}
	return domain.StatusActiveExposure
}
