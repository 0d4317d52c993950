package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/storage"
)

// ProfileStore implements storage.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *Pool
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(pool *Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProfileStore = (*ProfileStore)(nil)

const profileColumns = `
	vault_address, vault_name, chain_id, chain, curator_name,
	exposure_status, discovery_method, vault_tvl_usd,
	peak_toxic_supply_usd, peak_toxic_ts,
	alloc_at_crisis_usd, alloc_week_before_usd,
	first_zero_alloc_ts, first_cap_zero_ts, first_toxic_withdraw_ts,
	last_toxic_withdraw_ts, queue_removed_toxic_ts,
	toxic_withdraw_count, toxic_supply_count, admin_event_count,
	earliest_action_ts, days_before_crisis, response_class`

// ReplaceAll atomically swaps the stored snapshot for the given rows.
func (s *ProfileStore) ReplaceAll(ctx context.Context, profiles []*domain.CuratorResponseProfile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace profiles: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM curator_profiles`); err != nil {
		return fmt.Errorf("clear profiles: %w", err)
	}

	query := `
		INSERT INTO curator_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23)
	`
	for _, p := range profiles {
		if p == nil || p.VaultAddress == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			p.VaultAddress, p.VaultName, p.ChainID, p.Chain, p.CuratorName,
			string(p.ExposureStatus), string(p.DiscoveryMethod), p.VaultTVLUSD,
			p.PeakToxicSupplyUSD, p.PeakToxicTS,
			p.AllocAtCrisisUSD, p.AllocWeekBeforeUSD,
			p.FirstZeroAllocTS, p.FirstCapZeroTS, p.FirstToxicWithdrawTS,
			p.LastToxicWithdrawTS, p.QueueRemovedToxicTS,
			p.ToxicWithdrawCount, p.ToxicSupplyCount, p.AdminEventCount,
			p.EarliestActionTS, p.DaysBeforeCrisis, string(p.ResponseClass),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert profile %s: %w", p.VaultAddress, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByVault retrieves the profile for one vault.
func (s *ProfileStore) GetByVault(ctx context.Context, vaultAddress string, chainID int64) (*domain.CuratorResponseProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM curator_profiles
		WHERE vault_address = lower($1) AND chain_id = $2
	`
	rows, err := s.pool.Query(ctx, query, vaultAddress, chainID)
	if err != nil {
		return nil, fmt.Errorf("get profile by vault: %w", err)
	}
	defer rows.Close()

	profiles, err := scanProfiles(rows)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, storage.ErrNotFound
	}
	return profiles[0], nil
}

// GetByClass retrieves all profiles with a given response class.
func (s *ProfileStore) GetByClass(ctx context.Context, class domain.ResponseClass) ([]*domain.CuratorResponseProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM curator_profiles
		WHERE response_class = $1
		ORDER BY vault_address ASC, chain_id ASC
	`
	rows, err := s.pool.Query(ctx, query, string(class))
	if err != nil {
		return nil, fmt.Errorf("get profiles by class: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// GetAll retrieves the full snapshot, ordered by (vault_address, chain_id).
func (s *ProfileStore) GetAll(ctx context.Context) ([]*domain.CuratorResponseProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM curator_profiles
		ORDER BY vault_address ASC, chain_id ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all profiles: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

func scanProfiles(rows pgx.Rows) ([]*domain.CuratorResponseProfile, error) {
	var result []*domain.CuratorResponseProfile
	for rows.Next() {
		var p domain.CuratorResponseProfile
		var status, method, class string
		err := rows.Scan(
			&p.VaultAddress, &p.VaultName, &p.ChainID, &p.Chain, &p.CuratorName,
			&status, &method, &p.VaultTVLUSD,
			&p.PeakToxicSupplyUSD, &p.PeakToxicTS,
			&p.AllocAtCrisisUSD, &p.AllocWeekBeforeUSD,
			&p.FirstZeroAllocTS, &p.FirstCapZeroTS, &p.FirstToxicWithdrawTS,
			&p.LastToxicWithdrawTS, &p.QueueRemovedToxicTS,
			&p.ToxicWithdrawCount, &p.ToxicSupplyCount, &p.AdminEventCount,
			&p.EarliestActionTS, &p.DaysBeforeCrisis, &class,
		)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.ExposureStatus = domain.ExposureStatus(status)
		p.DiscoveryMethod = domain.DiscoveryMethod(method)
		p.ResponseClass = domain.ResponseClass(class)
		result = append(result, &p)
	}
	return result, rows.Err()
}
