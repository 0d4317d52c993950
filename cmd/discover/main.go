// Package main runs the discovery stage alone: scan chains for toxic
// markets and reconstruct which vaults were exposed. No assessment,
// no persistence, CSV output only.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"morpho-exposure-lab/internal/config"
	"morpho-exposure-lab/internal/discovery"
	"morpho-exposure-lab/internal/domain"
	"morpho-exposure-lab/internal/entity"
	"morpho-exposure-lab/internal/morpho"
	"morpho-exposure-lab/internal/reporting"
)

func main() {
	writeCSV := flag.Bool("csv", true, "write toxic_markets.csv and vault_exposures.csv")
	flag.Parse()

	logger := log.New(os.Stderr, "[discover] ", log.LstdFlags)

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
		logger.Printf("received signal %v, cancelling", sig)
		cancel()
	}()

	client := morpho.NewClient(cfg.GraphQLEndpoint,
		morpho.WithTimeout(cfg.HTTPTimeout),
		morpho.WithMaxRetries(cfg.MaxRetries),
		morpho.WithRequestDelay(cfg.RequestDelay),
		morpho.WithChainNames(cfg.Chains),
		morpho.WithLogger(logger),
	)

	engine := discovery.NewEngine(discovery.Options{
		Source:      client,
		Filter:      entity.NewToxicFilter(cfg.ToxicSymbols, cfg.FalsePositives),
		Chains:      cfg.Chains,
		CrisisTS:    cfg.CrisisTS,
		PreCrisisTS: cfg.PreCrisisTS,
		Logger:      logger,
	})

	markets, marketResult, err := engine.DiscoverToxicMarkets(ctx)
	if err != nil {
		logger.Fatalf("discover markets: %v", err)
	}
	fmt.Printf("Scanned %d chains (%d failed), %d markets, %d toxic\n",
		marketResult.ChainsScanned, marketResult.ChainsFailed,
		marketResult.MarketsScanned, len(markets))
	for _, m := range markets {
		fmt.Printf("  %-10s %s %s/%s supply=%.0f borrow=%.0f\n",
			m.Chain, m.UniqueKey, m.CollateralAsset.Symbol, m.LoanAsset.Symbol,
			m.State.SupplyAssetsUSD, m.State.BorrowAssetsUSD)
	}

	exposures, expResult, err := engine.DiscoverExposures(ctx, markets)
	if err != nil {
		logger.Fatalf("discover exposures: %v", err)
	}
	fmt.Printf("Found %d exposures across phases (phase1=%d, backfilled=%d, synthetic=%d, low-confidence=%d)\n",
		len(exposures), expResult.Phase1Vaults, expResult.Phase3Fetched,
		expResult.SyntheticRows, expResult.LowConfidenceRows)
	for _, e := range exposures {
		fmt.Printf("  %-10s %s %-24s %s %.0f USD (%s)\n",
			e.Chain, e.VaultAddress, e.VaultName, e.MarketUniqueKey,
			e.SupplyAssetsUSD, e.Status)
	}

	if *writeCSV {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			logger.Fatalf("create output dir: %v", err)
		}

		writeFile(logger, cfg.OutputDir, "toxic_markets.csv", reporting.RenderMarketsCSV(marketPtrs(markets)))
		writeFile(logger, cfg.OutputDir, "vault_exposures.csv", reporting.RenderExposuresCSV(exposurePtrs(exposures)))
		fmt.Printf("CSV artifacts written to %s\n", cfg.OutputDir)
	}
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

func writeFile(logger *log.Logger, dir, name, content string) {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		logger.Fatalf("write %s: %v", name, err)
	}
}
