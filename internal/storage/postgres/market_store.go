package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/storage"
)

// MarketStore implements storage.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *Pool
}

// NewMarketStore creates a new MarketStore.
func NewMarketStore(pool *Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MarketStore = (*MarketStore)(nil)

const marketColumns = `
	unique_key, chain_id, chain, listed, creation_ts,
	collateral_address, collateral_symbol, collateral_name, collateral_decimals, collateral_price_usd,
	loan_address, loan_symbol, loan_name, loan_decimals, loan_price_usd,
	lltv,
	oracle_address, oracle_type, oracle_base_feed_one, oracle_base_feed_two,
	oracle_quote_feed_one, oracle_quote_feed_two, oracle_base_vault, oracle_quote_vault, oracle_scale_factor,
	state_ts, state_block, supply_assets, borrow_assets, collateral_assets, liquidity_assets,
	supply_assets_usd, borrow_assets_usd, collateral_assets_usd, liquidity_assets_usd,
	utilization, oracle_price_raw,
	bad_debt_usd, bad_debt_underlying, realized_bad_debt_usd, realized_bad_debt_underlying,
	warnings, supplying_vaults`

// ReplaceAll atomically swaps the stored snapshot for the given rows.
func (s *MarketStore) ReplaceAll(ctx context.Context, markets []*domain.Market) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace markets: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM toxic_markets`); err != nil {
		return fmt.Errorf("clear markets: %w", err)
	}

	query := `
		INSERT INTO toxic_markets (` + marketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
		        $31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41, $42, $43)
	`
	for _, m := range markets {
		if m == nil || m.UniqueKey == "" {
			return storage.ErrInvalidInput
		}
		warnings, err := json.Marshal(m.Warnings)
		if err != nil {
			return fmt.Errorf("marshal warnings: %w", err)
		}
		vaults, err := json.Marshal(m.SupplyingVaults)
		if err != nil {
			return fmt.Errorf("marshal supplying vaults: %w", err)
		}

		_, err = tx.Exec(ctx, query,
			m.UniqueKey, m.ChainID, m.Chain, m.Listed, m.CreationTimestamp,
			m.CollateralAsset.Address, m.CollateralAsset.Symbol, m.CollateralAsset.Name,
			m.CollateralAsset.Decimals, m.CollateralAsset.SpotPriceUSD,
			m.LoanAsset.Address, m.LoanAsset.Symbol, m.LoanAsset.Name,
			m.LoanAsset.Decimals, m.LoanAsset.SpotPriceUSD,
			m.LiquidationLTV,
			m.Oracle.Address, m.Oracle.Type, m.Oracle.BaseFeedOne, m.Oracle.BaseFeedTwo,
			m.Oracle.QuoteFeedOne, m.Oracle.QuoteFeedTwo, m.Oracle.BaseVault, m.Oracle.QuoteVault, m.Oracle.ScaleFactor,
			m.State.Timestamp, m.State.BlockNumber,
			m.State.SupplyAssets, m.State.BorrowAssets, m.State.CollateralAssets, m.State.LiquidityAssets,
			m.State.SupplyAssetsUSD, m.State.BorrowAssetsUSD, m.State.CollateralAssetsUSD, m.State.LiquidityAssetsUSD,
			m.State.Utilization, m.State.OraclePriceRaw,
			m.BadDebtUSD, m.BadDebtUnderlying, m.RealizedBadDebtUSD, m.RealizedBadDebtUnderlying,
			warnings, vaults,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert market %s: %w", m.UniqueKey, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByKey retrieves a market by (unique_key, chain_id). Returns ErrNotFound if not exists.
func (s *MarketStore) GetByKey(ctx context.Context, uniqueKey string, chainID int64) (*domain.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM toxic_markets WHERE unique_key = lower($1) AND chain_id = $2`

	row := s.pool.QueryRow(ctx, query, uniqueKey, chainID)
	m, err := scanMarket(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get market by key: %w", err)
	}
	return m, nil
}

// GetByChain retrieves all markets on a chain, ordered by unique_key ASC.
func (s *MarketStore) GetByChain(ctx context.Context, chainID int64) ([]*domain.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM toxic_markets WHERE chain_id = $1 ORDER BY unique_key ASC`

	rows, err := s.pool.Query(ctx, query, chainID)
	if err != nil {
		return nil, fmt.Errorf("get markets by chain: %w", err)
	}
	defer rows.Close()

	return scanMarkets(rows)
}

// GetAll retrieves the full snapshot, ordered by (chain_id, unique_key).
func (s *MarketStore) GetAll(ctx context.Context) ([]*domain.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM toxic_markets ORDER BY chain_id ASC, unique_key ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all markets: %w", err)
	}
	defer rows.Close()

	return scanMarkets(rows)
}

func scanMarket(row pgx.Row) (*domain.Market, error) {
	var m domain.Market
	var warnings, vaults []byte

	err := row.Scan(
		&m.UniqueKey, &m.ChainID, &m.Chain, &m.Listed, &m.CreationTimestamp,
		&m.CollateralAsset.Address, &m.CollateralAsset.Symbol, &m.CollateralAsset.Name,
		&m.CollateralAsset.Decimals, &m.CollateralAsset.SpotPriceUSD,
		&m.LoanAsset.Address, &m.LoanAsset.Symbol, &m.LoanAsset.Name,
		&m.LoanAsset.Decimals, &m.LoanAsset.SpotPriceUSD,
		&m.LiquidationLTV,
		&m.Oracle.Address, &m.Oracle.Type, &m.Oracle.BaseFeedOne, &m.Oracle.BaseFeedTwo,
		&m.Oracle.QuoteFeedOne, &m.Oracle.QuoteFeedTwo, &m.Oracle.BaseVault, &m.Oracle.QuoteVault, &m.Oracle.ScaleFactor,
		&m.State.Timestamp, &m.State.BlockNumber,
		&m.State.SupplyAssets, &m.State.BorrowAssets, &m.State.CollateralAssets, &m.State.LiquidityAssets,
		&m.State.SupplyAssetsUSD, &m.State.BorrowAssetsUSD, &m.State.CollateralAssetsUSD, &m.State.LiquidityAssetsUSD,
		&m.State.Utilization, &m.State.OraclePriceRaw,
		&m.BadDebtUSD, &m.BadDebtUnderlying, &m.RealizedBadDebtUSD, &m.RealizedBadDebtUnderlying,
		&warnings, &vaults,
	)
	if err != nil {
		return nil, err
	}

	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &m.Warnings); err != nil {
			return nil, fmt.Errorf("unmarshal warnings: %w", err)
		}
	}
	if len(vaults) > 0 {
		if err := json.Unmarshal(vaults, &m.SupplyingVaults); err != nil {
			return nil, fmt.Errorf("unmarshal supplying vaults: %w", err)
		}
	}

	m.CollateralAsset.ChainID = m.ChainID
	m.LoanAsset.ChainID = m.ChainID
	return &m, nil
}

func scanMarkets(rows pgx.Rows) ([]*domain.Market, error) {
	var result []*domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
