// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the analysis pipeline.
type Config struct {
	// Query API
	GraphQLEndpoint string
	RequestDelay    time.Duration
	HTTPTimeout     time.Duration
	MaxRetries      int

	// Toxic collateral definition
	ToxicSymbols   []string
	FalsePositives []string

	// Crisis timeline (unix seconds)
	CrisisTS      int64
	PreCrisisTS   int64
	WindowStartTS int64
	WindowEndTS   int64

	// Chains to scan, keyed by chain id
	Chains map[int64]string

	// Output
	OutputDir string

	// Storage (empty DSN selects in-memory stores)
	PostgresDSN   string
	ClickhouseDSN string

	// Metrics
	MetricsAddr string
}

// Default crisis timeline: the Nov 2025 stablecoin collapse window.
const (
	defaultWindowStartTS = 1756684800 // 2025-09-01
	defaultPreCrisisTS   = 1761696000 // 2025-10-28
	defaultCrisisTS      = 1762214400 // 2025-11-04
	defaultWindowEndTS   = 1769817600 // 2026-01-31
)

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		GraphQLEndpoint: getEnv("GRAPHQL_ENDPOINT", "https://blue-api.morpho.org/graphql"),
		RequestDelay:    time.Duration(getEnvInt("REQUEST_DELAY_MS", 300)) * time.Millisecond,
		HTTPTimeout:     time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),

		ToxicSymbols:   getEnvList("TOXIC_SYMBOLS", []string{"xUSD", "XUSD", "deUSD", "sdeUSD", "deusd"}),
		FalsePositives: getEnvList("FALSE_POSITIVE_SYMBOLS", []string{"AA_FalconXUSDC", "stakedao-crvfrxUSD", "crvfrxUSD", "sfrxUSD", "fxUSD"}),

		CrisisTS:      getEnvInt64("CRISIS_TIMESTAMP", defaultCrisisTS),
		PreCrisisTS:   getEnvInt64("PRE_CRISIS_TIMESTAMP", defaultPreCrisisTS),
		WindowStartTS: getEnvInt64("WINDOW_START_TIMESTAMP", defaultWindowStartTS),
		WindowEndTS:   getEnvInt64("WINDOW_END_TIMESTAMP", defaultWindowEndTS),

		OutputDir: getEnv("OUTPUT_DIR", "data"),

		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}

	chains, err := parseChainMap(getEnv("CHAINS",
		"ethereum:1,optimism:10,unichain:130,polygon:137,hyperevm:999,base:8453,arbitrum:42161,plume:98866"))
	if err != nil {
		return nil, fmt.Errorf("parse CHAINS: %w", err)
	}
	cfg.Chains = chains

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GraphQLEndpoint == "" {
		return fmt.Errorf("GRAPHQL_ENDPOINT must not be empty")
	}
	if len(c.ToxicSymbols) == 0 {
		return fmt.Errorf("TOXIC_SYMBOLS must name at least one symbol")
	}
	if len(c.Chains) == 0 {
		return fmt.Errorf("CHAINS must name at least one chain")
	}
	if c.CrisisTS <= c.WindowStartTS || c.CrisisTS >= c.WindowEndTS {
		return fmt.Errorf("CRISIS_TIMESTAMP %d outside analysis window [%d, %d]",
			c.CrisisTS, c.WindowStartTS, c.WindowEndTS)
	}
	if c.PreCrisisTS >= c.CrisisTS {
		return fmt.Errorf("PRE_CRISIS_TIMESTAMP must precede CRISIS_TIMESTAMP")
	}
	return nil
}

// ChainName resolves a chain id to its configured name, falling back to the
// numeric id for unmapped chains.
func (c *Config) ChainName(chainID int64) string {
	if name, ok := c.Chains[chainID]; ok {
		return name
	}
	return strconv.FormatInt(chainID, 10)
}

// parseChainMap parses "name:id,name:id" into a chain id to name map.
func parseChainMap(s string) (map[int64]string, error) {
	chains := make(map[int64]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, idStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q: want name:id", part)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", part, err)
		}
		chains[id] = strings.TrimSpace(name)
	}
	return chains, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
