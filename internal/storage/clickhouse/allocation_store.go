package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/storage"
)

// AllocationPointStore implements storage.AllocationPointStore using ClickHouse.
type AllocationPointStore struct {
	conn *Conn
}

// NewAllocationPointStore creates a new AllocationPointStore.
func NewAllocationPointStore(conn *Conn) *AllocationPointStore {
	return &AllocationPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AllocationPointStore = (*AllocationPointStore)(nil)

// InsertBulk adds multiple points. Fails the entire batch on any duplicate.
func (s *AllocationPointStore) InsertBulk(ctx context.Context, points []*domain.AllocationPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		vault     string
		chainID   int64
		market    string
		timestamp int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.VaultAddress == "" || p.MarketUniqueKey == "" {
			return storage.ErrInvalidInput
		}
		k := key{strings.ToLower(p.VaultAddress), p.ChainID, strings.ToLower(p.MarketUniqueKey), p.Timestamp}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.VaultAddress, p.ChainID, p.MarketUniqueKey, p.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO allocation_points (
			vault_address, chain_id, market_unique_key, timestamp, supply_assets_usd, supply_cap
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			strings.ToLower(p.VaultAddress), p.ChainID, strings.ToLower(p.MarketUniqueKey),
			uint64(p.Timestamp), p.SupplyAssetsUSD, p.SupplyCap,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByVault retrieves all points for a vault, ordered by timestamp then market key.
func (s *AllocationPointStore) GetByVault(ctx context.Context, vaultAddress string, chainID int64) ([]*domain.AllocationPoint, error) {
	query := `
		SELECT vault_address, chain_id, market_unique_key, timestamp, supply_assets_usd, supply_cap
		FROM allocation_points
		WHERE vault_address = ? AND chain_id = ?
		ORDER BY timestamp ASC, market_unique_key ASC
	`

	rows, err := s.conn.Query(ctx, query, strings.ToLower(vaultAddress), chainID)
	if err != nil {
		return nil, fmt.Errorf("query by vault: %w", err)
	}
	defer rows.Close()

	return scanAllocationPoints(rows)
}

// GetByVaultMarket retrieves a single series, ordered by timestamp ASC.
func (s *AllocationPointStore) GetByVaultMarket(ctx context.Context, vaultAddress string, chainID int64, marketUniqueKey string) ([]*domain.AllocationPoint, error) {
	query := `
		SELECT vault_address, chain_id, market_unique_key, timestamp, supply_assets_usd, supply_cap
		FROM allocation_points
		WHERE vault_address = ? AND chain_id = ? AND market_unique_key = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, strings.ToLower(vaultAddress), chainID, strings.ToLower(marketUniqueKey))
	if err != nil {
		return nil, fmt.Errorf("query by vault market: %w", err)
	}
	defer rows.Close()

	return scanAllocationPoints(rows)
}

// DeleteAll clears the series ahead of a fresh run.
func (s *AllocationPointStore) DeleteAll(ctx context.Context) error {
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE allocation_points`); err != nil {
		return fmt.Errorf("truncate allocation points: %w", err)
	}
	return nil
}

// exists checks if a point with the given key exists.
func (s *AllocationPointStore) exists(ctx context.Context, vaultAddress string, chainID int64, marketUniqueKey string, timestamp int64) (bool, error) {
	query := `
		SELECT count(*) FROM allocation_points
		WHERE vault_address = ? AND chain_id = ? AND market_unique_key = ? AND timestamp = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, strings.ToLower(vaultAddress), chainID, strings.ToLower(marketUniqueKey), uint64(timestamp)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanAllocationPoints(rows chRows) ([]*domain.AllocationPoint, error) {
	var points []*domain.AllocationPoint

	for rows.Next() {
		var p domain.AllocationPoint
		var timestamp uint64

		err := rows.Scan(
			&p.VaultAddress, &p.ChainID, &p.MarketUniqueKey,
			&timestamp, &p.SupplyAssetsUSD, &p.SupplyCap,
		)
		if err != nil {
			return nil, fmt.Errorf("scan allocation point row: %w", err)
		}

		p.Timestamp = int64(timestamp)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocation point rows: %w", err)
	}

	return points, nil
}
