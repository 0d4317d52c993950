package reporting

import "time"

// Report is the run summary built from the stored snapshot.
type Report struct {
	GeneratedAt time.Time

	Summary Summary

	// Breakdown tables (sorted, deterministic).
	StatusBreakdown   []StatusCountRow
	ResponseBreakdown []ResponseCountRow
	TopLosses         []LossRow
}

// Summary contains headline counts of the run.
type Summary struct {
	ToxicMarketCount int
	ChainCount       int

	ExposureCount       int
	ActiveExposureCount int
	VaultCount          int

	AssessmentCount      int
	ConfirmedCount       int
	OracleMaskingCount   int
	TotalBestEstimateUSD float64

	ProfileCount int
}

// StatusCountRow is one bad-debt classification bucket.
type StatusCountRow struct {
	Status string
	Count  int
}

// ResponseCountRow is one curator response bucket.
type ResponseCountRow struct {
	Class string
	Count int
}

// LossRow is one market in the best-estimate loss ranking.
type LossRow struct {
	MarketUniqueKey  string
	Chain            string
	CollateralSymbol string
	LoanSymbol       string
	Status           string
	BestEstimateUSD  float64
}
