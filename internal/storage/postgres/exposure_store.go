package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/storage"
)

// ExposureStore implements storage.ExposureStore using PostgreSQL.
type ExposureStore struct {
	pool *Pool
}

// NewExposureStore creates a new ExposureStore.
func NewExposureStore(pool *Pool) *ExposureStore {
	return &ExposureStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExposureStore = (*ExposureStore)(nil)

const exposureColumns = `
	vault_address, vault_name, chain_id, chain, curator_name,
	market_unique_key, collateral_symbol, loan_symbol, lltv,
	supply_assets, supply_assets_usd, supply_cap, supply_cap_usd, removable_at,
	vault_total_assets_usd, vault_share_price, vault_timelock_seconds,
	exposure_pct, status, discovery_method, low_confidence`

// ReplaceAll atomically swaps the stored snapshot for the given rows.
func (s *ExposureStore) ReplaceAll(ctx context.Context, exposures []*domain.Exposure) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace exposures: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM vault_exposures`); err != nil {
		return fmt.Errorf("clear exposures: %w", err)
	}

	query := `
		INSERT INTO vault_exposures (` + exposureColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	for _, e := range exposures {
		if e == nil || e.VaultAddress == "" || e.MarketUniqueKey == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			e.VaultAddress, e.VaultName, e.ChainID, e.Chain, e.CuratorName,
			e.MarketUniqueKey, e.CollateralSymbol, e.LoanSymbol, e.LiquidationLTV,
			e.SupplyAssets, e.SupplyAssetsUSD, e.SupplyCap, e.SupplyCapUSD, e.RemovableAt,
			e.VaultTotalAssetsUSD, e.VaultSharePrice, e.VaultTimelockSeconds,
			e.ExposurePct, string(e.Status), string(e.DiscoveryMethod), e.LowConfidence,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert exposure %s/%s: %w", e.VaultAddress, e.MarketUniqueKey, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByVault retrieves all exposures of a vault, ordered by market key ASC.
func (s *ExposureStore) GetByVault(ctx context.Context, vaultAddress string, chainID int64) ([]*domain.Exposure, error) {
	query := `
		SELECT ` + exposureColumns + `
		FROM vault_exposures
		WHERE vault_address = lower($1) AND chain_id = $2
		ORDER BY market_unique_key ASC
	`
	rows, err := s.pool.Query(ctx, query, vaultAddress, chainID)
	if err != nil {
		return nil, fmt.Errorf("get exposures by vault: %w", err)
	}
	defer rows.Close()

	return scanExposures(rows)
}

// GetByMarket retrieves all exposures into a market, ordered by vault address ASC.
func (s *ExposureStore) GetByMarket(ctx context.Context, marketUniqueKey string, chainID int64) ([]*domain.Exposure, error) {
	query := `
		SELECT ` + exposureColumns + `
		FROM vault_exposures
		WHERE market_unique_key = lower($1) AND chain_id = $2
		ORDER BY vault_address ASC
	`
	rows, err := s.pool.Query(ctx, query, marketUniqueKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("get exposures by market: %w", err)
	}
	defer rows.Close()

	return scanExposures(rows)
}

// GetByStatus retrieves all exposures in a given state.
func (s *ExposureStore) GetByStatus(ctx context.Context, status domain.ExposureStatus) ([]*domain.Exposure, error) {
	query := `
		SELECT ` + exposureColumns + `
		FROM vault_exposures
		WHERE status = $1
		ORDER BY vault_address ASC, chain_id ASC, market_unique_key ASC
	`
	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("get exposures by status: %w", err)
	}
	defer rows.Close()

	return scanExposures(rows)
}

// GetAll retrieves the full snapshot, ordered by (vault_address, chain_id, market_key).
func (s *ExposureStore) GetAll(ctx context.Context) ([]*domain.Exposure, error) {
	query := `
		SELECT ` + exposureColumns + `
		FROM vault_exposures
		ORDER BY vault_address ASC, chain_id ASC, market_unique_key ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all exposures: %w", err)
	}
	defer rows.Close()

	return scanExposures(rows)
}

func scanExposures(rows pgx.Rows) ([]*domain.Exposure, error) {
	var result []*domain.Exposure
	for rows.Next() {
		var e domain.Exposure
		var status, method string
		err := rows.Scan(
			&e.VaultAddress, &e.VaultName, &e.ChainID, &e.Chain, &e.CuratorName,
			&e.MarketUniqueKey, &e.CollateralSymbol, &e.LoanSymbol, &e.LiquidationLTV,
			&e.SupplyAssets, &e.SupplyAssetsUSD, &e.SupplyCap, &e.SupplyCapUSD, &e.RemovableAt,
			&e.VaultTotalAssetsUSD, &e.VaultSharePrice, &e.VaultTimelockSeconds,
			&e.ExposurePct, &status, &method, &e.LowConfidence,
		)
		if err != nil {
			return nil, fmt.Errorf("scan exposure: %w", err)
		}
		e.Status = domain.ExposureStatus(status)
		e.DiscoveryMethod = domain.DiscoveryMethod(method)
		result = append(result, &e)
	}
	return result, rows.Err()
}
