package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/storage"
)

// AssessmentStore implements storage.AssessmentStore using PostgreSQL.
type AssessmentStore struct {
	pool *Pool
}

// NewAssessmentStore creates a new AssessmentStore.
func NewAssessmentStore(pool *Pool) *AssessmentStore {
	return &AssessmentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssessmentStore = (*AssessmentStore)(nil)

const assessmentColumns = `
	market_unique_key, chain_id, chain, collateral_symbol, loan_symbol,
	gap_raw, gap_usd, layer1_loss_usd, has_layer1_debt, liquidity_discrepancy,
	layer2_reported_usd, layer2_realized_usd, layer2_total_usd,
	oracle_implied_price_usd, oracle_spot_gap_pct, oracle_spot_gap_usd,
	true_ltv, displayed_ltv, utilization, status, oracle_masking,
	best_estimate_usd, oracle_type, oracle_address, oracle_is_hardcoded,
	oracle_is_vault_based, supply_assets_usd, borrow_assets_usd,
	collateral_assets_usd, state_timestamp`

// ReplaceAll atomically swaps the stored snapshot for the given rows.
func (s *AssessmentStore) ReplaceAll(ctx context.Context, assessments []*domain.BadDebtAssessment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace assessments: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM bad_debt_assessments`); err != nil {
		return fmt.Errorf("clear assessments: %w", err)
	}

	query := `
		INSERT INTO bad_debt_assessments (` + assessmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
	`
	for _, a := range assessments {
		if a == nil || a.MarketUniqueKey == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			a.MarketUniqueKey, a.ChainID, a.Chain, a.CollateralSymbol, a.LoanSymbol,
			a.GapRaw, a.GapUSD, a.Layer1LossUSD, a.HasLayer1Debt, a.LiquidityDiscrepancy,
			a.Layer2ReportedUSD, a.Layer2RealizedUSD, a.Layer2TotalUSD,
			a.OracleImpliedPriceUSD, a.OracleSpotGapPct, a.OracleSpotGapUSD,
			a.TrueLTV, a.DisplayedLTV, a.Utilization, string(a.Status), a.OracleMasking,
			a.BestEstimateUSD, a.OracleType, a.OracleAddress, a.OracleIsHardcoded,
			a.OracleIsVaultBased, a.SupplyAssetsUSD, a.BorrowAssetsUSD,
			a.CollateralAssetsUSD, a.StateTimestamp,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert assessment %s: %w", a.MarketUniqueKey, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByKey retrieves the assessment for one market.
func (s *AssessmentStore) GetByKey(ctx context.Context, marketUniqueKey string, chainID int64) (*domain.BadDebtAssessment, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM bad_debt_assessments
		WHERE market_unique_key = lower($1) AND chain_id = $2
	`
	rows, err := s.pool.Query(ctx, query, marketUniqueKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("get assessment by key: %w", err)
	}
	defer rows.Close()

	assessments, err := scanAssessments(rows)
	if err != nil {
		return nil, err
	}
	if len(assessments) == 0 {
		return nil, storage.ErrNotFound
	}
	return assessments[0], nil
}

// GetByStatus retrieves all assessments with a given classification.
func (s *AssessmentStore) GetByStatus(ctx context.Context, status domain.BadDebtStatus) ([]*domain.BadDebtAssessment, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM bad_debt_assessments
		WHERE status = $1
		ORDER BY chain_id ASC, market_unique_key ASC
	`
	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("get assessments by status: %w", err)
	}
	defer rows.Close()

	return scanAssessments(rows)
}

// GetAll retrieves the full snapshot, ordered by (chain_id, market_unique_key).
func (s *AssessmentStore) GetAll(ctx context.Context) ([]*domain.BadDebtAssessment, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM bad_debt_assessments
		ORDER BY chain_id ASC, market_unique_key ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all assessments: %w", err)
	}
	defer rows.Close()

	return scanAssessments(rows)
}

func scanAssessments(rows pgx.Rows) ([]*domain.BadDebtAssessment, error) {
	var result []*domain.BadDebtAssessment
	for rows.Next() {
		var a domain.BadDebtAssessment
		var status string
		err := rows.Scan(
			&a.MarketUniqueKey, &a.ChainID, &a.Chain, &a.CollateralSymbol, &a.LoanSymbol,
			&a.GapRaw, &a.GapUSD, &a.Layer1LossUSD, &a.HasLayer1Debt, &a.LiquidityDiscrepancy,
			&a.Layer2ReportedUSD, &a.Layer2RealizedUSD, &a.Layer2TotalUSD,
			&a.OracleImpliedPriceUSD, &a.OracleSpotGapPct, &a.OracleSpotGapUSD,
			&a.TrueLTV, &a.DisplayedLTV, &a.Utilization, &status, &a.OracleMasking,
			&a.BestEstimateUSD, &a.OracleType, &a.OracleAddress, &a.OracleIsHardcoded,
			&a.OracleIsVaultBased, &a.SupplyAssetsUSD, &a.BorrowAssetsUSD,
			&a.CollateralAssetsUSD, &a.StateTimestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		a.Status = domain.BadDebtStatus(status)
		result = append(result, &a)
	}
	return result, rows.Err()
}
