package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GraphQLEndpoint == "" {
		t.Error("expected default endpoint")
	}
	if len(cfg.ToxicSymbols) == 0 {
		t.Error("expected default toxic symbols")
	}
	if cfg.Chains[1] != "ethereum" || cfg.Chains[8453] != "base" {
		t.Errorf("unexpected chain map: %v", cfg.Chains)
	}
	if cfg.CrisisTS <= cfg.PreCrisisTS {
		t.Error("crisis must follow pre-crisis window start")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHAINS", "ethereum:1,base:8453")
	t.Setenv("TOXIC_SYMBOLS", "aaaUSD, bbbUSD")
	t.Setenv("REQUEST_DELAY_MS", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Chains) != 2 {
		t.Errorf("expected 2 chains, got %v", cfg.Chains)
	}
	if len(cfg.ToxicSymbols) != 2 || cfg.ToxicSymbols[1] != "bbbUSD" {
		t.Errorf("unexpected toxic symbols: %v", cfg.ToxicSymbols)
	}
	if cfg.RequestDelay.Milliseconds() != 50 {
		t.Errorf("unexpected request delay: %v", cfg.RequestDelay)
	}
}

func TestLoad_InvalidChainMap(t *testing.T) {
	t.Setenv("CHAINS", "ethereum=1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed chain map")
	}
}

func TestLoad_CrisisOutsideWindow(t *testing.T) {
	t.Setenv("CRISIS_TIMESTAMP", "1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for crisis outside analysis window")
	}
}

func TestChainName_Fallback(t *testing.T) {
	cfg := &Config{Chains: map[int64]string{1: "ethereum"}}
	if got := cfg.ChainName(1); got != "ethereum" {
		t.Errorf("ChainName(1) = %q", got)
	}
	if got := cfg.ChainName(424242); got != "424242" {
		t.Errorf("ChainName(424242) = %q", got)
	}
}
