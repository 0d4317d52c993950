package storage

import (
	"context"

	"morpho-exposure-lab/internal/domain"
)

// The analysis is a full snapshot rebuild: each run recomputes every row
// from live API data, so the snapshot stores replace their contents
// atomically instead of merging.

// MarketStore provides access to the toxic market snapshot.
type MarketStore interface {
	// ReplaceAll atomically swaps the stored snapshot for the given rows.
	ReplaceAll(ctx context.Context, markets []*domain.Market) error

	// GetByKey retrieves a market by (unique_key, chain_id). Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, uniqueKey string, chainID int64) (*domain.Market, error)

	// GetByChain retrieves all markets on a chain, ordered by unique_key ASC.
	GetByChain(ctx context.Context, chainID int64) ([]*domain.Market, error)

	// GetAll retrieves the full snapshot, ordered by (chain_id, unique_key).
	GetAll(ctx context.Context) ([]*domain.Market, error)
}

// ExposureStore provides access to vault-market exposure rows.
type ExposureStore interface {
	// ReplaceAll atomically swaps the stored snapshot for the given rows.
	ReplaceAll(ctx context.Context, exposures []*domain.Exposure) error

	// GetByVault retrieves all exposures of a vault, ordered by market key ASC.
	GetByVault(ctx context.Context, vaultAddress string, chainID int64) ([]*domain.Exposure, error)

	// GetByMarket retrieves all exposures into a market, ordered by vault address ASC.
	GetByMarket(ctx context.Context, marketUniqueKey string, chainID int64) ([]*domain.Exposure, error)

	// GetByStatus retrieves all exposures in a given state.
	GetByStatus(ctx context.Context, status domain.ExposureStatus) ([]*domain.Exposure, error)

	// GetAll retrieves the full snapshot, ordered by (vault_address, chain_id, market_key).
	GetAll(ctx context.Context) ([]*domain.Exposure, error)
}

// AssessmentStore provides access to per-market bad-debt assessments.
type AssessmentStore interface {
	// ReplaceAll atomically swaps the stored snapshot for the given rows.
	ReplaceAll(ctx context.Context, assessments []*domain.BadDebtAssessment) error

	// GetByKey retrieves an assessment by (market_key, chain_id). Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, marketUniqueKey string, chainID int64) (*domain.BadDebtAssessment, error)

	// GetByStatus retrieves all assessments with a given classification.
	GetByStatus(ctx context.Context, status domain.BadDebtStatus) ([]*domain.BadDebtAssessment, error)

	// GetAll retrieves the full snapshot, ordered by (chain_id, market_key).
	GetAll(ctx context.Context) ([]*domain.BadDebtAssessment, error)
}

// ProfileStore provides access to curator response profiles.
type ProfileStore interface {
	// ReplaceAll atomically swaps the stored snapshot for the given rows.
	ReplaceAll(ctx context.Context, profiles []*domain.CuratorResponseProfile) error

	// GetByVault retrieves a vault's profile. Returns ErrNotFound if not exists.
	GetByVault(ctx context.Context, vaultAddress string, chainID int64) (*domain.CuratorResponseProfile, error)

	// GetByClass retrieves all profiles in a response bucket.
	GetByClass(ctx context.Context, class domain.ResponseClass) ([]*domain.CuratorResponseProfile, error)

	// GetAll retrieves the full snapshot, ordered by (vault_address, chain_id).
	GetAll(ctx context.Context) ([]*domain.CuratorResponseProfile, error)
}

// AllocationPointStore provides access to the daily allocation timeseries.
type AllocationPointStore interface {
	// InsertBulk adds multiple points. Fails the batch on any duplicate
	// (vault_address, chain_id, market_key, timestamp).
	InsertBulk(ctx context.Context, points []*domain.AllocationPoint) error

	// GetByVault retrieves all points for a vault, ordered by timestamp ASC.
	GetByVault(ctx context.Context, vaultAddress string, chainID int64) ([]*domain.AllocationPoint, error)

	// GetByVaultMarket retrieves a single series, ordered by timestamp ASC.
	GetByVaultMarket(ctx context.Context, vaultAddress string, chainID int64, marketUniqueKey string) ([]*domain.AllocationPoint, error)

	// DeleteAll clears the series ahead of a fresh run.
	DeleteAll(ctx context.Context) error
}
