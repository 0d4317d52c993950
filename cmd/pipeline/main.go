// Package main provides the full analysis pipeline entry point.
// Executes: discovery → assessment → response reconstruction → reporting
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"morpho-exposure-lab/internal/config"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/morpho"
	"morpho-exposure-lab/internal/observability"
	"morpho-exposure-lab/internal/orchestrator"
	"morpho-exposure-lab/internal/storage"
	"morpho-exposure-lab/internal/storage/clickhouse"
	"morpho-exposure-lab/internal/storage/memory"
	"morpho-exposure-lab/internal/storage/migrations"
	"morpho-exposure-lab/internal/storage/postgres"
)

func main() {
	logger := log.New(os.Stderr, "[pipeline] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, cancelling run", sig)
		cancel()
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	client := morpho.NewClient(cfg.GraphQLEndpoint,
		morpho.WithTimeout(cfg.HTTPTimeout),
		morpho.WithMaxRetries(cfg.MaxRetries),
		morpho.WithRequestDelay(cfg.RequestDelay),
		morpho.WithChainNames(cfg.Chains),
		morpho.WithLogger(logger),
	)

	stores, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init storage: %v", err)
	}
	defer cleanup()

	orch := orchestrator.New(orchestrator.Options{
		Client:          client,
		Filter:          entity.NewToxicFilter(cfg.ToxicSymbols, cfg.FalsePositives),
		Chains:          cfg.Chains,
		CrisisTS:        cfg.CrisisTS,
		PreCrisisTS:     cfg.PreCrisisTS,
		WindowStartTS:   cfg.WindowStartTS,
		WindowEndTS:     cfg.WindowEndTS,
		OutputDir:       cfg.OutputDir,
		MarketStore:     stores.markets,
		ExposureStore:   stores.exposures,
		AssessmentStore: stores.assessments,
		ProfileStore:    stores.profiles,
		AllocationStore: stores.allocations,
		Logger:          logger,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		logger.Fatalf("run failed: %v", err)
	}

	fmt.Printf("Run completed:\n")
	fmt.Printf("  Chains scanned: %d (%d failed)\n", result.ChainsScanned, result.ChainsFailed)
	fmt.Printf("  Toxic markets:  %d\n", result.ToxicMarkets)
	fmt.Printf("  Exposures:      %d across %d vaults\n", result.Exposures, result.Vaults)
	fmt.Printf("  Assessments:    %d (%d errors)\n", result.Assessments, result.AssessmentErrors)
	fmt.Printf("  Profiles:       %d (%d errors)\n", result.Profiles, result.ProfileErrors)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	fmt.Printf("Artifacts written to %s\n", cfg.OutputDir)
}

// runStores bundles the five store interfaces the orchestrator needs.
type runStores struct {
	markets     storage.MarketStore
	exposures   storage.ExposureStore
	assessments storage.AssessmentStore
	profiles    storage.ProfileStore
	allocations storage.AllocationPointStore
}

// buildStores selects the storage backend per DSN. Empty DSNs fall back to
// in-memory stores so a run needs no infrastructure.
func buildStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*runStores, func(), error) {
	stores := &runStores{
		markets:     memory.NewMarketStore(),
		exposures:   memory.NewExposureStore(),
		assessments: memory.NewAssessmentStore(),
		profiles:    memory.NewProfileStore(),
		allocations: memory.NewAllocationPointStore(),
	}
	cleanup := func() {}

	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		stores.markets = postgres.NewMarketStore(pool)
		stores.exposures = postgres.NewExposureStore(pool)
		stores.assessments = postgres.NewAssessmentStore(pool)
		stores.profiles = postgres.NewProfileStore(pool)
		logger.Printf("using postgres snapshot stores")

		prev := cleanup
		cleanup = func() { pool.Close(); prev() }
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.allocations = clickhouse.NewAllocationPointStore(conn)
		logger.Printf("using clickhouse allocation store")

		prev := cleanup
		cleanup = func() { conn.Close(); prev() }
	}

	return stores, cleanup, nil
}
