package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/storage"
)

const topLossLimit = 20

// Generator produces the run report and CSV artifacts from stored data.
type Generator struct {
	marketStore     storage.MarketStore
	exposureStore   storage.ExposureStore
	assessmentStore storage.AssessmentStore
	profileStore    storage.ProfileStore
	now             func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	markets storage.MarketStore,
	exposures storage.ExposureStore,
	assessments storage.AssessmentStore,
	profiles storage.ProfileStore,
) *Generator {
	return &Generator{
		marketStore:     markets,
		exposureStore:   exposures,
		assessmentStore: assessments,
		profileStore:    profiles,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the run summary from the stored snapshot.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	markets, err := g.marketStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	exposures, err := g.exposureStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exposures: %w", err)
	}
	assessments, err := g.assessmentStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assessments: %w", err)
	}
	profiles, err := g.profileStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}

	return &Report{
		GeneratedAt:       g.now(),
		Summary:           buildSummary(markets, exposures, assessments, profiles),
		StatusBreakdown:   buildStatusBreakdown(assessments),
		ResponseBreakdown: buildResponseBreakdown(profiles),
		TopLosses:         buildTopLosses(assessments),
	}, nil
}

// WriteFiles renders the four CSV record sets plus the Markdown summary into
// outputDir, overwriting previous runs.
func (g *Generator) WriteFiles(ctx context.Context, outputDir string) error {
	markets, err := g.marketStore.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load markets: %w", err)
	}
	exposures, err := g.exposureStore.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load exposures: %w", err)
	}
	assessments, err := g.assessmentStore.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load assessments: %w", err)
	}
	profiles, err := g.profileStore.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	report, err := g.Generate(ctx)
	if err != nil {
		return err
	}

	files := map[string]string{
		"toxic_markets.csv":        RenderMarketsCSV(markets),
		"vault_exposures.csv":      RenderExposuresCSV(exposures),
		"bad_debt_assessments.csv": RenderAssessmentsCSV(assessments),
		"curator_profiles.csv":     RenderProfilesCSV(profiles),
		"summary.md":               RenderMarkdown(report),
	}

	for name, content := range files {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	return nil
}

func buildSummary(
	markets []*domain.Market,
	exposures []*domain.Exposure,
	assessments []*domain.BadDebtAssessment,
	profiles []*domain.CuratorResponseProfile,
) Summary {
	s := Summary{
		ToxicMarketCount: len(markets),
		ExposureCount:    len(exposures),
		AssessmentCount:  len(assessments),
		ProfileCount:     len(profiles),
	}

	chains := make(map[int64]struct{})
	for _, m := range markets {
		chains[m.ChainID] = struct{}{}
	}
	s.ChainCount = len(chains)

	vaults := make(map[string]struct{})
	for _, e := range exposures {
		vaults[fmt.Sprintf("%s/%d", e.VaultAddress, e.ChainID)] = struct{}{}
		if e.Status == domain.StatusActiveExposure {
			s.ActiveExposureCount++
		}
	}
	s.VaultCount = len(vaults)

	for _, a := range assessments {
		if a.Status == domain.BadDebtConfirmed {
			s.ConfirmedCount++
		}
		if a.OracleMasking {
			s.OracleMaskingCount++
		}
		s.TotalBestEstimateUSD += a.BestEstimateUSD
	}

	return s
}

func buildStatusBreakdown(assessments []*domain.BadDebtAssessment) []StatusCountRow {
	counts := make(map[string]int)
	for _, a := range assessments {
		counts[string(a.Status)]++
	}

	rows := make([]StatusCountRow, 0, len(counts))
	for status, count := range counts {
		rows = append(rows, StatusCountRow{Status: status, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Status < rows[j].Status
	})
	return rows
}

func buildResponseBreakdown(profiles []*domain.CuratorResponseProfile) []ResponseCountRow {
	counts := make(map[string]int)
	for _, p := range profiles {
		counts[string(p.ResponseClass)]++
	}

	rows := make([]ResponseCountRow, 0, len(counts))
	for class, count := range counts {
		rows = append(rows, ResponseCountRow{Class: class, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Class < rows[j].Class
	})
	return rows
}

func buildTopLosses(assessments []*domain.BadDebtAssessment) []LossRow {
	var rows []LossRow
	for _, a := range assessments {
		if a.BestEstimateUSD <= 0 {
			continue
		}
		rows = append(rows, LossRow{
			MarketUniqueKey:  a.MarketUniqueKey,
			Chain:            a.Chain,
			CollateralSymbol: a.CollateralSymbol,
			LoanSymbol:       a.LoanSymbol,
			Status:           string(a.Status),
			BestEstimateUSD:  a.BestEstimateUSD,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].BestEstimateUSD != rows[j].BestEstimateUSD {
			return rows[i].BestEstimateUSD > rows[j].BestEstimateUSD
		}
		return rows[i].MarketUniqueKey < rows[j].MarketUniqueKey
	})
	if len(rows) > topLossLimit {
		rows = rows[:topLossLimit]
	}
	return rows
}
