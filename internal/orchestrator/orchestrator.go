// Package orchestrator sequences the full analysis run.
// It coordinates: discovery → assessment → response reconstruction → reporting
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"morpho-exposure-lab/internal/baddebt"
	"morpho-exposure-lab/internal/discovery"
	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/observability"
	"morpho-exposure-lab/internal/reporting"
	"morpho-exposure-lab/internal/response"
	"morpho-exposure-lab/internal/storage"
)

// Client is the API surface the orchestrator needs.
type Client interface {
	discovery.Source

	MarketByUniqueKey(ctx context.Context, uniqueKey string, chainID int64) (*domain.Market, error)
	AllocationHistory(ctx context.Context, address string, chainID int64, fromTS, toTS int64, keep func(marketKey string) bool) ([]domain.AllocationPoint, error)
	AdminEvents(ctx context.Context, address string, chainID int64, isToxic func(marketKey string) bool) ([]domain.AdminEvent, error)
	ReallocationsByVaults(ctx context.Context, chainID int64, vaultAddrs []string, fromTS, toTS int64) ([]domain.ReallocationEvent, error)
}

// Orchestrator coordinates the staged pipeline execution.
type Orchestrator struct {
	client Client
	filter *entity.ToxicFilter
	chains map[int64]string

	crisisTS      int64
	preCrisisTS   int64
	windowStartTS int64
	windowEndTS   int64
	outputDir     string

	marketStore     storage.MarketStore
	exposureStore   storage.ExposureStore
	assessmentStore storage.AssessmentStore
	profileStore    storage.ProfileStore
	allocationStore storage.AllocationPointStore

	logger *log.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	Client Client
	Filter *entity.ToxicFilter
	Chains map[int64]string

	CrisisTS      int64
	PreCrisisTS   int64
	WindowStartTS int64
	WindowEndTS   int64

	// OutputDir receives the CSV artifacts; empty skips the report stage.
	OutputDir string

	MarketStore     storage.MarketStore
	ExposureStore   storage.ExposureStore
	AssessmentStore storage.AssessmentStore
	ProfileStore    storage.ProfileStore
	AllocationStore storage.AllocationPointStore

	Logger *log.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		client:          opts.Client,
		filter:          opts.Filter,
		chains:          opts.Chains,
		crisisTS:        opts.CrisisTS,
		preCrisisTS:     opts.PreCrisisTS,
		windowStartTS:   opts.WindowStartTS,
		windowEndTS:     opts.WindowEndTS,
		outputDir:       opts.OutputDir,
		marketStore:     opts.MarketStore,
		exposureStore:   opts.ExposureStore,
		assessmentStore: opts.AssessmentStore,
		profileStore:    opts.ProfileStore,
		allocationStore: opts.AllocationStore,
		logger:          logger,
	}
}

// RunResult contains counters from a full run.
type RunResult struct {
	ChainsScanned int
	ChainsFailed  int

	ToxicMarkets int
	Exposures    int
	Vaults       int

	Assessments      int
	AssessmentErrors int

	Profiles         int
	ProfileErrors    int
	AllocationPoints int

	Errors []string
}

// Run executes the full pipeline.
// Stages:
//  1. Discover toxic markets across all configured chains
//  2. Discover vault exposures (three-phase scan)
//  3. Assess per-market bad debt
//  4. Reconstruct per-vault curator response
//  5. Write CSV artifacts
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	engine := discovery.NewEngine(discovery.Options{
		Source:      o.client,
		Filter:      o.filter,
		Chains:      o.chains,
		CrisisTS:    o.crisisTS,
		PreCrisisTS: o.preCrisisTS,
		Logger:      o.logger,
	})

	// Stage 1: toxic markets
	o.logger.Printf("stage 1: scanning %d chains for toxic markets", len(o.chains))
	started := time.Now()
	markets, marketResult, err := engine.DiscoverToxicMarkets(ctx)
	if err != nil {
		observability.RecordStage("discover_markets", "error", time.Since(started).Seconds())
		return nil, fmt.Errorf("discover toxic markets: %w", err)
	}
	observability.RecordStage("discover_markets", "success", time.Since(started).Seconds())
	result.ChainsScanned = marketResult.ChainsScanned
	result.ChainsFailed = marketResult.ChainsFailed
	result.ToxicMarkets = len(markets)
	o.logger.Printf("  found %d toxic markets (%d chains scanned, %d failed)",
		len(markets), marketResult.ChainsScanned, marketResult.ChainsFailed)

	if err := o.marketStore.ReplaceAll(ctx, marketPtrs(markets)); err != nil {
		return nil, fmt.Errorf("persist markets: %w", err)
	}

	// Stage 2: vault exposures
	o.logger.Printf("stage 2: discovering vault exposures")
	started = time.Now()
	exposures, expResult, err := engine.DiscoverExposures(ctx, markets)
	if err != nil {
		observability.RecordStage("discover_exposures", "error", time.Since(started).Seconds())
		return nil, fmt.Errorf("discover exposures: %w", err)
	}
	observability.RecordStage("discover_exposures", "success", time.Since(started).Seconds())
	result.Exposures = len(exposures)
	o.logger.Printf("  found %d exposures (%d synthetic, %d low-confidence)",
		len(exposures), expResult.SyntheticRows, expResult.LowConfidenceRows)

	if err := o.exposureStore.ReplaceAll(ctx, exposurePtrs(exposures)); err != nil {
		return nil, fmt.Errorf("persist exposures: %w", err)
	}

	// Stage 3: bad debt assessment
	o.logger.Printf("stage 3: assessing %d markets", len(markets))
	started = time.Now()
	assessments, assessErrs := o.runAssessments(ctx, markets)
	observability.RecordStage("assess", "success", time.Since(started).Seconds())
	result.Assessments = len(assessments)
	result.AssessmentErrors = len(assessErrs)
	result.Errors = append(result.Errors, assessErrs...)
	o.logger.Printf("  computed %d assessments (%d errors)", len(assessments), len(assessErrs))

	if err := o.assessmentStore.ReplaceAll(ctx, assessments); err != nil {
		return nil, fmt.Errorf("persist assessments: %w", err)
	}

	// Stage 4: curator response
	o.logger.Printf("stage 4: reconstructing curator responses")
	started = time.Now()
	profiles, points, profileErrs := o.runResponseReconstruction(ctx, markets, exposures)
	observability.RecordStage("reconstruct", "success", time.Since(started).Seconds())
	result.Profiles = len(profiles)
	result.ProfileErrors = len(profileErrs)
	result.AllocationPoints = len(points)
	result.Errors = append(result.Errors, profileErrs...)
	o.logger.Printf("  built %d profiles, %d allocation points (%d errors)",
		len(profiles), len(points), len(profileErrs))

	if err := o.profileStore.ReplaceAll(ctx, profiles); err != nil {
		return nil, fmt.Errorf("persist profiles: %w", err)
	}
	if err := o.persistAllocationPoints(ctx, points); err != nil {
		return nil, fmt.Errorf("persist allocation points: %w", err)
	}

	vaults := make(map[string]struct{})
	for _, e := range exposures {
		vaults[fmt.Sprintf("%s/%d", e.VaultAddress, e.ChainID)] = struct{}{}
	}
	result.Vaults = len(vaults)

	// Stage 5: report
	if o.outputDir != "" {
		o.logger.Printf("stage 5: writing artifacts to %s", o.outputDir)
		started = time.Now()
		gen := reporting.NewGenerator(o.marketStore, o.exposureStore, o.assessmentStore, o.profileStore)
		if err := gen.WriteFiles(ctx, o.outputDir); err != nil {
			observability.RecordStage("report", "error", time.Since(started).Seconds())
			return nil, fmt.Errorf("write reports: %w", err)
		}
		observability.RecordStage("report", "success", time.Since(started).Seconds())
		observability.DefaultMetrics.ReportsWritten.Inc()
	}

	observability.DefaultMetrics.LastSuccessfulRun.Set(float64(time.Now().Unix()))
	o.logger.Printf("run completed: %d markets, %d exposures, %d assessments, %d profiles",
		result.ToxicMarkets, result.Exposures, result.Assessments, result.Profiles)

	return result, nil
}

// runAssessments refetches each toxic market with full oracle data and runs
// the three-layer classification. A market that cannot be refetched is
// assessed from the discovery snapshot instead; only total failures are
// recorded as errors.
func (o *Orchestrator) runAssessments(ctx context.Context, markets []domain.Market) ([]*domain.BadDebtAssessment, []string) {
	classifier := baddebt.NewClassifier()

	var assessments []*domain.BadDebtAssessment
	var errs []string

	for i := range markets {
		m := markets[i]

		detailed, err := o.client.MarketByUniqueKey(ctx, m.UniqueKey, m.ChainID)
		if err != nil {
			o.logger.Printf("market %s: detail fetch failed, assessing snapshot: %v", m.UniqueKey, err)
			observability.RecordItemError("assess")
			errs = append(errs, fmt.Sprintf("assess %s: %v", m.UniqueKey, err))
		} else {
			m = *detailed
			if m.Chain == "" {
				m.Chain = o.chains[m.ChainID]
			}
		}

		a := classifier.Assess(m)
		observability.DefaultMetrics.AssessmentsComputed.WithLabelValues(string(a.Status)).Inc()
		assessments = append(assessments, &a)
	}

	return assessments, errs
}

// runResponseReconstruction fetches each exposed vault's evidence streams and
// builds its response profile. A vault whose history is partially
// unavailable is still profiled from whatever evidence arrived.
func (o *Orchestrator) runResponseReconstruction(
	ctx context.Context,
	markets []domain.Market,
	exposures []domain.Exposure,
) ([]*domain.CuratorResponseProfile, []*domain.AllocationPoint, []string) {
	toxicByChain := toxicKeySets(markets)

	reconstructor := response.NewReconstructor(response.Options{
		CrisisTS:    o.crisisTS,
		PreCrisisTS: o.preCrisisTS,
		IsToxicMarketKey: func(marketKey string) bool {
			key := strings.ToLower(marketKey)
			for _, keys := range toxicByChain {
				if _, ok := keys[key]; ok {
					return true
				}
			}
			return false
		},
		Logger: o.logger,
	})

	var profiles []*domain.CuratorResponseProfile
	var allPoints []*domain.AllocationPoint
	var errs []string

	for _, group := range groupByVault(exposures) {
		first := group[0]
		chainKeys := toxicByChain[first.ChainID]
		isToxic := func(marketKey string) bool {
			_, ok := chainKeys[strings.ToLower(marketKey)]
			return ok
		}

		in := response.Inputs{Exposures: group}

		points, err := o.client.AllocationHistory(ctx, first.VaultAddress, first.ChainID,
			o.windowStartTS, o.windowEndTS, isToxic)
		if err != nil {
			o.logger.Printf("vault %s: allocation history failed: %v", first.VaultAddress, err)
			observability.RecordItemError("reconstruct")
			errs = append(errs, fmt.Sprintf("allocations %s: %v", first.VaultAddress, err))
		} else {
			in.Allocations = points
			for i := range points {
				allPoints = append(allPoints, &points[i])
			}
		}

		events, err := o.client.AdminEvents(ctx, first.VaultAddress, first.ChainID, isToxic)
		if err != nil {
			o.logger.Printf("vault %s: admin events failed: %v", first.VaultAddress, err)
			observability.RecordItemError("reconstruct")
			errs = append(errs, fmt.Sprintf("admin events %s: %v", first.VaultAddress, err))
		} else {
			in.AdminEvents = events
		}

		reallocs, err := o.client.ReallocationsByVaults(ctx, first.ChainID,
			[]string{first.VaultAddress}, o.windowStartTS, o.windowEndTS)
		if err != nil {
			o.logger.Printf("vault %s: reallocations failed: %v", first.VaultAddress, err)
			observability.RecordItemError("reconstruct")
			errs = append(errs, fmt.Sprintf("reallocations %s: %v", first.VaultAddress, err))
		} else {
			for i := range reallocs {
				reallocs[i].IsToxicMarket = isToxic(reallocs[i].MarketUniqueKey)
			}
			in.Reallocations = reallocs
		}

		p := reconstructor.BuildProfile(in)
		observability.DefaultMetrics.ProfilesBuilt.WithLabelValues(string(p.ResponseClass)).Inc()
		profiles = append(profiles, &p)
	}

	return profiles, allPoints, errs
}

func (o *Orchestrator) persistAllocationPoints(ctx context.Context, points []*domain.AllocationPoint) error {
	if err := o.allocationStore.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear allocation points: %w", err)
	}
	return o.allocationStore.InsertBulk(ctx, points)
}

// toxicKeySets indexes the toxic market keys per chain.
func toxicKeySets(markets []domain.Market) map[int64]map[string]struct{} {
	sets := make(map[int64]map[string]struct{})
	for _, m := range markets {
		if sets[m.ChainID] == nil {
			sets[m.ChainID] = make(map[string]struct{})
		}
		sets[m.ChainID][strings.ToLower(m.UniqueKey)] = struct{}{}
	}
	return sets
}

// groupByVault groups exposure rows by (vault, chain), preserving the sorted
// order discovery produced.
func groupByVault(exposures []domain.Exposure) [][]domain.Exposure {
	index := make(map[string]int)
	var groups [][]domain.Exposure

	for _, e := range exposures {
		key := fmt.Sprintf("%s/%d", e.VaultAddress, e.ChainID)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}

func marketPtrs(markets []domain.Market) []*domain.Market {
	out := make([]*domain.Market, len(markets))
	for i := range markets {
		out[i] = &markets[i]
	}
	return out
}

func exposurePtrs(exposures []domain.Exposure) []*domain.Exposure {
	out := make([]*domain.Exposure, len(exposures))
	for i := range exposures {
		out[i] = &exposures[i]
	}
	return out
}
