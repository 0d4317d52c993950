package morpho

import (
	"context"
	"fmt"
	"strings"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/observability"
)

// Page sizes tuned per query family. Reallocation scans tolerate larger
// pages than full vault payloads.
const (
	marketPageSize  = 100
	vaultPageSize   = 100
	reallocPageSize = 500
	eventPageSize   = 100
	enrichPageSize  = 25
)

const assetFields = `
          address
          symbol
          name
          decimals
          priceUsd`

const marketStateFields = `
          timestamp
          blockNumber
          supplyAssets
          borrowAssets
          supplyAssetsUsd
          borrowAssetsUsd
          collateralAssets
          collateralAssetsUsd
          liquidityAssets
          liquidityAssetsUsd
          utilization
          price`

const oracleDataFragment = `
          data {
            ... on MorphoChainlinkOracleData {
              baseFeedOne { address }
              baseFeedTwo { address }
              quoteFeedOne { address }
              quoteFeedTwo { address }
              scaleFactor
              baseOracleVault { address }
            }
            ... on MorphoChainlinkOracleV2Data {
              baseFeedOne { address }
              baseFeedTwo { address }
              quoteFeedOne { address }
              quoteFeedTwo { address }
              scaleFactor
              baseOracleVault { address }
              quoteOracleVault { address }
            }
          }`

const vaultFields = `
        address
        name
        symbol
        listed
        creationTimestamp
        asset {
          address
          symbol
          decimals
        }
        chain {
          id
          network
        }
        state {
          timestamp
          totalAssets
          totalAssetsUsd
          sharePriceNumber
          sharePriceUsd
          timelock
          curator
          guardian
          owner
          curators {
            name
            verified
          }
          allocation {
            market {
              uniqueKey
              loanAsset { symbol address }
              collateralAsset { symbol address }
              lltv
            }
            supplyAssets
            supplyAssetsUsd
            supplyCap
            supplyCapUsd
            enabled
            removableAt
          }
        }`

// quoteList renders a GraphQL string array body from a slice of values.
func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}

func marketFields(withOracleData bool) string {
	oracle := ""
	if withOracleData {
		oracle = oracleDataFragment
	}
	return fmt.Sprintf(`
        uniqueKey
        listed
        lltv
        creationTimestamp
        loanAsset {%s
        }
        collateralAsset {%s
        }
        oracle {
          address
          type%s
        }
        badDebt {
          underlying
          usd
        }
        realizedBadDebt {
          underlying
          usd
        }
        warnings {
          type
          level
          metadata {
            ... on BadDebtUnrealizedMarketWarningMetadata {
              badDebtUsd
              badDebtAssets
              badDebtShare
            }
          }
        }
        state {%s
        }
        supplyingVaults {
          address
          name
        }`, assetFields, assetFields, oracle, marketStateFields)
}

// MarketsByChain fetches every market on a chain, paging until the
// reported total is exhausted.
func (c *Client) MarketsByChain(ctx context.Context, chainID int64) ([]domain.Market, error) {
	var markets []domain.Market
	skip := 0
	for {
		q := fmt.Sprintf(`{
  markets(first: %d, skip: %d, where: { chainId_in: [%d] }) {
    items {%s
    }
    pageInfo { count countTotal limit skip }
  }
}`, marketPageSize, skip, chainID, marketFields(false))

		var page rawMarketsPage
		if err := c.query(ctx, "markets", q, &page); err != nil {
			return nil, fmt.Errorf("markets chain %d skip %d: %w", chainID, skip, err)
		}
		observability.RecordPageFetched("markets")
		items := page.Markets.Items
		if len(items) == 0 {
			break
		}
		for i := range items {
			markets = append(markets, c.convertMarket(&items[i], chainID))
		}
		skip += len(items)
		if skip >= page.Markets.PageInfo.CountTotal {
			break
		}
	}
	return markets, nil
}

// MarketByUniqueKey fetches a single market with full oracle detail.
// Some markets have a null oracle scale factor that makes the API reject
// the oracle data fragment, so a second attempt goes out without it.
func (c *Client) MarketByUniqueKey(ctx context.Context, uniqueKey string, chainID int64) (*domain.Market, error) {
	for _, withOracleData := range []bool{true, false} {
		q := fmt.Sprintf(`{
  marketByUniqueKey(uniqueKey: %q, chainId: %d) {%s
  }
}`, uniqueKey, chainID, marketFields(withOracleData))

		var resp rawMarketByKey
		err := c.query(ctx, "market_by_key", q, &resp)
		if err != nil {
			if withOracleData {
				c.logger.Printf("market %s: oracle data query failed, retrying without: %v", uniqueKey, err)
				continue
			}
			return nil, fmt.Errorf("market %s chain %d: %w", uniqueKey, chainID, err)
		}
		if resp.MarketByUniqueKey == nil {
			return nil, fmt.Errorf("market %s chain %d: %w", uniqueKey, chainID, ErrNotFound)
		}
		m := c.convertMarket(resp.MarketByUniqueKey, chainID)
		return &m, nil
	}
	return nil, fmt.Errorf("market %s chain %d: unreachable", uniqueKey, chainID)
}

// VaultsByMarketKeys fetches every vault currently allocating to any of the
// given markets on a chain.
func (c *Client) VaultsByMarketKeys(ctx context.Context, chainID int64, marketKeys []string) ([]domain.Vault, error) {
	if len(marketKeys) == 0 {
		return nil, nil
	}
	var vaults []domain.Vault
	skip := 0
	for {
		q := fmt.Sprintf(`{
  vaults(first: %d, skip: %d, where: { chainId_in: [%d], marketUniqueKey_in: [%s] }) {
    items {%s
    }
    pageInfo { count countTotal limit skip }
  }
}`, vaultPageSize, skip, chainID, quoteList(marketKeys), vaultFields)

		var page rawVaultsPage
		if err := c.query(ctx, "vaults", q, &page); err != nil {
			return nil, fmt.Errorf("vaults chain %d skip %d: %w", chainID, skip, err)
		}
		observability.RecordPageFetched("vaults")
		items := page.Vaults.Items
		if len(items) == 0 {
			break
		}
		for i := range items {
			vaults = append(vaults, c.convertVault(&items[i], chainID))
		}
		skip += len(items)
		if skip >= page.Vaults.PageInfo.CountTotal {
			break
		}
	}
	return vaults, nil
}

// VaultByAddress fetches one vault with its full allocation snapshot.
func (c *Client) VaultByAddress(ctx context.Context, address string, chainID int64) (*domain.Vault, error) {
	q := fmt.Sprintf(`{
  vaultByAddress(address: %q, chainId: %d) {%s
  }
}`, address, chainID, vaultFields)

	var resp rawVaultByAddress
	if err := c.query(ctx, "vault_by_address", q, &resp); err != nil {
		return nil, fmt.Errorf("vault %s chain %d: %w", address, chainID, err)
	}
	if resp.VaultByAddress == nil {
		return nil, fmt.Errorf("vault %s chain %d: %w", address, chainID, ErrNotFound)
	}
	v := c.convertVault(resp.VaultByAddress, chainID)
	return &v, nil
}

// ReallocationsByMarketKeys scans reallocation events touching any of the
// given markets on a chain, newest first.
func (c *Client) ReallocationsByMarketKeys(ctx context.Context, chainID int64, marketKeys []string) ([]domain.ReallocationEvent, error) {
	where := fmt.Sprintf("marketUniqueKey_in: [%s], chainId_in: [%d]", quoteList(marketKeys), chainID)
	return c.scanReallocations(ctx, chainID, where, "Desc")
}

// ReallocationsByVaults scans all reallocation events of the given vaults
// on a chain inside a timestamp window, oldest first.
func (c *Client) ReallocationsByVaults(ctx context.Context, chainID int64, vaultAddrs []string, fromTS, toTS int64) ([]domain.ReallocationEvent, error) {
	where := fmt.Sprintf("vaultAddress_in: [%s], chainId_in: [%d], timestamp_gte: %d, timestamp_lte: %d",
		quoteList(vaultAddrs), chainID, fromTS, toTS)
	return c.scanReallocations(ctx, chainID, where, "Asc")
}

func (c *Client) scanReallocations(ctx context.Context, chainID int64, where, direction string) ([]domain.ReallocationEvent, error) {
	var events []domain.ReallocationEvent
	skip := 0
	for {
		q := fmt.Sprintf(`{
  vaultReallocates(first: %d, skip: %d, orderBy: Timestamp, orderDirection: %s, where: { %s }) {
    items {
      vault { address name }
      market { uniqueKey collateralAsset { symbol } loanAsset { symbol } }
      type
      timestamp
      hash
      blockNumber
      caller
      assets
      shares
    }
    pageInfo { count countTotal limit skip }
  }
}`, reallocPageSize, skip, direction, where)

		var page rawReallocatesPage
		if err := c.query(ctx, "reallocations", q, &page); err != nil {
			return nil, fmt.Errorf("reallocations chain %d skip %d: %w", chainID, skip, err)
		}
		observability.RecordPageFetched("reallocations")
		items := page.VaultReallocates.Items
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			events = append(events, convertReallocation(item, chainID))
		}
		skip += len(items)
		if skip >= page.VaultReallocates.PageInfo.CountTotal {
			break
		}
	}
	return events, nil
}

// AllocationHistory fetches a vault's daily allocation series across all its
// markets inside the window, keeping only markets accepted by keep.
func (c *Client) AllocationHistory(ctx context.Context, address string, chainID int64, fromTS, toTS int64, keep func(marketKey string) bool) ([]domain.AllocationPoint, error) {
	q := fmt.Sprintf(`{
  vaultByAddress(address: %q, chainId: %d) {
    address
    name
    historicalState {
      allocation {
        market {
          uniqueKey
          collateralAsset { symbol }
          loanAsset { symbol }
        }
        supplyAssetsUsd(options: { startTimestamp: %d, endTimestamp: %d, interval: DAY }) { x, y }
        supplyCap(options: { startTimestamp: %d, endTimestamp: %d, interval: DAY }) { x, y }
      }
    }
  }
}`, address, chainID, fromTS, toTS, fromTS, toTS)

	var resp rawVaultHistory
	if err := c.query(ctx, "allocation_history", q, &resp); err != nil {
		return nil, fmt.Errorf("allocation history %s chain %d: %w", address, chainID, err)
	}
	if resp.VaultByAddress == nil || resp.VaultByAddress.HistoricalState == nil {
		return nil, nil
	}

	addr := lower(address)
	var points []domain.AllocationPoint
	for _, alloc := range resp.VaultByAddress.HistoricalState.Allocation {
		if alloc.Market == nil {
			continue
		}
		key := lower(alloc.Market.UniqueKey)
		if keep != nil && !keep(key) {
			continue
		}

		capByTS := make(map[int64]*float64, len(alloc.SupplyCap))
		for _, p := range alloc.SupplyCap {
			capByTS[entity.Int(p.X)] = entity.FloatPtr(p.Y)
		}

		for _, p := range alloc.SupplyAssetsUsd {
			if p.Y == nil {
				continue
			}
			ts := entity.Int(p.X)
			points = append(points, domain.AllocationPoint{
				VaultAddress:    addr,
				ChainID:         chainID,
				MarketUniqueKey: key,
				Timestamp:       ts,
				SupplyAssetsUSD: entity.Float(p.Y),
				SupplyCap:       capByTS[ts],
			})
		}
	}
	return points, nil
}

// AdminEvents fetches a vault's administrative event log in two passes: a
// lightweight scan of every event, then best-effort enrichment of cap values
// and queue contents. Enrichment failures degrade to bare events instead of
// failing the scan, since queue payloads can reference deleted markets the
// API refuses to resolve.
func (c *Client) AdminEvents(ctx context.Context, address string, chainID int64, isToxic func(marketKey string) bool) ([]domain.AdminEvent, error) {
	raws, err := c.scanAdminEvents(ctx, address, chainID)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, nil
	}

	enriched, err := c.enrichAdminEvents(ctx, address, chainID, len(raws))
	if err != nil {
		c.logger.Printf("vault %s: admin event enrichment failed, keeping bare events: %v", address, err)
		enriched = nil
	}

	addr := lower(address)
	events := make([]domain.AdminEvent, 0, len(raws))
	for _, raw := range raws {
		ev := domain.AdminEvent{
			VaultAddress: addr,
			ChainID:      chainID,
			Type:         raw.Type,
			Timestamp:    entity.Int(raw.Timestamp),
			TxHash:       raw.Hash,
		}
		if data, ok := enriched[raw.Hash]; ok && data != nil {
			switch raw.Type {
			case domain.AdminEventSetCap, domain.AdminEventSubmitCap:
				ev.Cap = entity.FloatPtr(data.Cap)
			case domain.AdminEventSetWithdrawQueue:
				for _, entry := range data.WithdrawQueue {
					ev.QueueMarketKeys = append(ev.QueueMarketKeys, lower(entry.UniqueKey))
				}
			case domain.AdminEventSetSupplyQueue:
				for _, entry := range data.SupplyQueue {
					ev.QueueMarketKeys = append(ev.QueueMarketKeys, lower(entry.UniqueKey))
				}
			}
		}
		if isToxic != nil {
			switch raw.Type {
			case domain.AdminEventSetSupplyQueue, domain.AdminEventSetWithdrawQueue:
				// Queue events are always relevant: an absent toxic key is
				// itself the removal signal.
				ev.TouchesToxicMarket = true
			default:
				for _, key := range ev.QueueMarketKeys {
					if isToxic(key) {
						ev.TouchesToxicMarket = true
						break
					}
				}
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *Client) scanAdminEvents(ctx context.Context, address string, chainID int64) ([]rawAdminEvent, error) {
	var raws []rawAdminEvent
	skip := 0
	for {
		q := fmt.Sprintf(`{
  vaultByAddress(address: %q, chainId: %d) {
    adminEvents(first: %d, skip: %d) {
      items {
        hash
        timestamp
        type
      }
      pageInfo { countTotal count skip limit }
    }
  }
}`, address, chainID, eventPageSize, skip)

		var page rawAdminEventsPage
		if err := c.query(ctx, "admin_events", q, &page); err != nil {
			return nil, fmt.Errorf("admin events %s skip %d: %w", address, skip, err)
		}
		observability.RecordPageFetched("admin_events")
		if page.VaultByAddress == nil {
			break
		}
		items := page.VaultByAddress.AdminEvents.Items
		if len(items) == 0 {
			break
		}
		raws = append(raws, items...)
		skip += len(items)
		if skip >= page.VaultByAddress.AdminEvents.PageInfo.CountTotal {
			break
		}
	}
	return raws, nil
}

func (c *Client) enrichAdminEvents(ctx context.Context, address string, chainID int64, total int) (map[string]*rawAdminEventData, error) {
	enriched := make(map[string]*rawAdminEventData)
	for skip := 0; skip < total; skip += enrichPageSize {
		q := fmt.Sprintf(`{
  vaultByAddress(address: %q, chainId: %d) {
    adminEvents(first: %d, skip: %d) {
      items {
        hash
        type
        data {
          ... on CapEventData {
            cap
          }
          ... on SetWithdrawQueueEventData {
            withdrawQueue { uniqueKey }
          }
          ... on SetSupplyQueueEventData {
            supplyQueue { uniqueKey }
          }
        }
      }
      pageInfo { countTotal }
    }
  }
}`, address, chainID, enrichPageSize, skip)

		var page rawAdminEventsPage
		if err := c.query(ctx, "admin_event_data", q, &page); err != nil {
			return enriched, err
		}
		observability.RecordPageFetched("admin_event_data")
		if page.VaultByAddress == nil {
			break
		}
		for _, item := range page.VaultByAddress.AdminEvents.Items {
			if item.Hash != "" && item.Data != nil {
				enriched[item.Hash] = item.Data
			}
		}
	}
	return enriched, nil
}
