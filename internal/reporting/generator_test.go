package reporting

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/storage/memory"
)

func fptr(v float64) *float64 { return &v }

func setupTestStores(t *testing.T) (*memory.MarketStore, *memory.ExposureStore, *memory.AssessmentStore, *memory.ProfileStore) {
	t.Helper()
	ctx := context.Background()

	marketStore := memory.NewMarketStore()
	exposureStore := memory.NewExposureStore()
	assessmentStore := memory.NewAssessmentStore()
	profileStore := memory.NewProfileStore()

	markets := []*domain.Market{
		{
			UniqueKey: "0xmarket1", ChainID: 1, Chain: "ethereum", Listed: true,
			CollateralAsset: domain.Asset{ChainID: 1, Symbol: "xUSD", Decimals: 18, SpotPriceUSD: fptr(0.02)},
			LoanAsset:       domain.Asset{ChainID: 1, Symbol: "USDC", Decimals: 6, SpotPriceUSD: fptr(1.0)},
			LiquidationLTV:  0.915,
			State:           domain.MarketState{SupplyAssetsUSD: 1000, BorrowAssetsUSD: 1200, Utilization: 1.2},
		},
		{
			UniqueKey: "0xmarket2", ChainID: 8453, Chain: "base",
			CollateralAsset: domain.Asset{ChainID: 8453, Symbol: "deUSD", Decimals: 18},
			LoanAsset:       domain.Asset{ChainID: 8453, Symbol: "WETH", Decimals: 18},
		},
	}
	if err := marketStore.ReplaceAll(ctx, markets); err != nil {
		t.Fatalf("ReplaceAll markets failed: %v", err)
	}

	exposures := []*domain.Exposure{
		{
			VaultAddress: "0xvault1", VaultName: "Vault, One", ChainID: 1, Chain: "ethereum",
			CuratorName: "Steakhouse", MarketUniqueKey: "0xmarket1",
			Status: domain.StatusActiveExposure, DiscoveryMethod: domain.DiscoveredByAllocation,
			SupplyAssetsUSD: 500, ExposurePct: 0.25,
		},
		{
			VaultAddress: "0xvault1", VaultName: "Vault, One", ChainID: 1, Chain: "ethereum",
			CuratorName: "Steakhouse", MarketUniqueKey: "0xmarket2",
			Status: domain.StatusFullyExited, DiscoveryMethod: domain.DiscoveredByAllocation,
		},
		{
			VaultAddress: "0xvault2", ChainID: 8453, Chain: "base",
			MarketUniqueKey: "0xmarket2", Status: domain.StatusHistoricallyExposed,
			DiscoveryMethod: domain.DiscoveredByReallocation, LowConfidence: true,
		},
	}
	if err := exposureStore.ReplaceAll(ctx, exposures); err != nil {
		t.Fatalf("ReplaceAll exposures failed: %v", err)
	}

	assessments := []*domain.BadDebtAssessment{
		{
			MarketUniqueKey: "0xmarket1", ChainID: 1, Chain: "ethereum",
			CollateralSymbol: "xUSD", LoanSymbol: "USDC",
			GapUSD: -200, Layer1LossUSD: 200, HasLayer1Debt: true,
			OracleImpliedPriceUSD: fptr(1.0), OracleSpotGapPct: fptr(0.98), OracleSpotGapUSD: fptr(49000),
			Status: domain.BadDebtConfirmed, OracleMasking: true, BestEstimateUSD: 49000,
		},
		{
			MarketUniqueKey: "0xmarket2", ChainID: 8453, Chain: "base",
			CollateralSymbol: "deUSD", LoanSymbol: "WETH",
			Status: domain.BadDebtHealthy,
		},
	}
	if err := assessmentStore.ReplaceAll(ctx, assessments); err != nil {
		t.Fatalf("ReplaceAll assessments failed: %v", err)
	}

	profiles := []*domain.CuratorResponseProfile{
		{
			VaultAddress: "0xvault1", VaultName: "Vault, One", ChainID: 1, Chain: "ethereum",
			CuratorName: "Steakhouse", ExposureStatus: domain.StatusActiveExposure,
			PeakToxicSupplyUSD: 100000, AllocAtCrisisUSD: fptr(50000),
			ResponseClass: domain.ResponseStayedExposed,
		},
		{
			VaultAddress: "0xvault2", ChainID: 8453, Chain: "base",
			ExposureStatus: domain.StatusHistoricallyExposed,
			ResponseClass:  domain.ResponseExitedTimingUnknown,
		},
	}
	if err := profileStore.ReplaceAll(ctx, profiles); err != nil {
		t.Fatalf("ReplaceAll profiles failed: %v", err)
	}

	return marketStore, exposureStore, assessmentStore, profileStore
}

func TestGenerate_Summary(t *testing.T) {
	ctx := context.Background()
	markets, exposures, assessments, profiles := setupTestStores(t)

	fixed := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(markets, exposures, assessments, profiles).
		WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixed)
	}
	if report.Summary.ToxicMarketCount != 2 {
		t.Errorf("ToxicMarketCount = %d, want 2", report.Summary.ToxicMarketCount)
	}
	if report.Summary.ChainCount != 2 {
		t.Errorf("ChainCount = %d, want 2", report.Summary.ChainCount)
	}
	if report.Summary.ExposureCount != 3 {
		t.Errorf("ExposureCount = %d, want 3", report.Summary.ExposureCount)
	}
	if report.Summary.ActiveExposureCount != 1 {
		t.Errorf("ActiveExposureCount = %d, want 1", report.Summary.ActiveExposureCount)
	}
	if report.Summary.VaultCount != 2 {
		t.Errorf("VaultCount = %d, want 2", report.Summary.VaultCount)
	}
	if report.Summary.ConfirmedCount != 1 {
		t.Errorf("ConfirmedCount = %d, want 1", report.Summary.ConfirmedCount)
	}
	if report.Summary.OracleMaskingCount != 1 {
		t.Errorf("OracleMaskingCount = %d, want 1", report.Summary.OracleMaskingCount)
	}
	if report.Summary.TotalBestEstimateUSD != 49000 {
		t.Errorf("TotalBestEstimateUSD = %f, want 49000", report.Summary.TotalBestEstimateUSD)
	}

	if len(report.TopLosses) != 1 {
		t.Fatalf("TopLosses len = %d, want 1", len(report.TopLosses))
	}
	if report.TopLosses[0].MarketUniqueKey != "0xmarket1" {
		t.Errorf("TopLosses[0] = %s, want 0xmarket1", report.TopLosses[0].MarketUniqueKey)
	}
}

func TestRenderExposuresCSV_EscapesNames(t *testing.T) {
	ctx := context.Background()
	_, exposureStore, _, _ := setupTestStores(t)

	exposures, err := exposureStore.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	csv := RenderExposuresCSV(exposures)

	if !strings.Contains(csv, `"Vault, One"`) {
		t.Errorf("comma-bearing vault name not quoted:\n%s", csv)
	}
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 4 {
		t.Errorf("line count = %d, want 4 (header + 3 rows)", len(lines))
	}
	if !strings.HasPrefix(lines[0], "vault_address,vault_name,") {
		t.Errorf("unexpected header: %s", lines[0])
	}
}

func TestRenderAssessmentsCSV_NullableFieldsEmpty(t *testing.T) {
	ctx := context.Background()
	_, _, assessmentStore, _ := setupTestStores(t)

	assessments, err := assessmentStore.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}

	csv := RenderAssessmentsCSV(assessments)
	lines := strings.Split(strings.TrimRight(csv, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("line count = %d, want 3", len(lines))
	}

	// The healthy market has no oracle analysis; its nullable columns are empty.
	var healthyLine string
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "0xmarket2,") {
			healthyLine = line
		}
	}
	if healthyLine == "" {
		t.Fatal("healthy market row missing")
	}
	if !strings.Contains(healthyLine, ",,,,,") {
		t.Errorf("expected empty nullable columns in: %s", healthyLine)
	}
}

func TestWriteFiles_OverwritesArtifacts(t *testing.T) {
	ctx := context.Background()
	markets, exposures, assessments, profiles := setupTestStores(t)

	dir := t.TempDir()
	stale := filepath.Join(dir, "vault_exposures.csv")
	if err := os.WriteFile(stale, []byte("stale content"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	gen := NewGenerator(markets, exposures, assessments, profiles)
	if err := gen.WriteFiles(ctx, dir); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	for _, name := range []string{
		"toxic_markets.csv", "vault_exposures.csv",
		"bad_debt_assessments.csv", "curator_profiles.csv", "summary.md",
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("artifact %s missing: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("artifact %s is empty", name)
		}
	}

	refreshed, err := os.ReadFile(stale)
	if err != nil {
		t.Fatalf("read refreshed file: %v", err)
	}
	if strings.Contains(string(refreshed), "stale content") {
		t.Error("stale artifact was not overwritten")
	}

	md, _ := os.ReadFile(filepath.Join(dir, "summary.md"))
	if !strings.Contains(string(md), "BAD_DEBT_CONFIRMED") {
		t.Errorf("summary missing classification breakdown:\n%s", md)
	}
}
