package morpho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"morpho-exposure-lab/internal/observability"
)

func newTestClient(url string) *Client {
	return NewClient(url,
		WithRequestDelay(0),
		WithChainNames(map[int64]string{1: "ethereum", 8453: "base"}),
	)
}

func TestClient_MarketByUniqueKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !strings.Contains(req.Query, "marketByUniqueKey") {
			t.Errorf("expected marketByUniqueKey query, got %s", req.Query)
		}

		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"marketByUniqueKey": map[string]interface{}{
					"uniqueKey":         "0xABCDEF",
					"listed":            true,
					"lltv":              "915000000000000000",
					"creationTimestamp": "1700000000",
					"loanAsset": map[string]interface{}{
						"address":  "0xLOAN",
						"symbol":   "USDC",
						"decimals": 6,
						"priceUsd": 0.9997,
					},
					"collateralAsset": map[string]interface{}{
						"address":  "0xCOLL",
						"symbol":   "xUSD",
						"decimals": 18,
						"priceUsd": 0.02,
					},
					"oracle": map[string]interface{}{
						"address": "0xORACLE",
						"type":    "ChainlinkOracle",
						"data": map[string]interface{}{
							"baseFeedOne": map[string]interface{}{
								"address": "0x0000000000000000000000000000000000000000",
							},
							"scaleFactor": "1000000000000000000000000",
						},
					},
					"badDebt":         map[string]interface{}{"underlying": "500000000", "usd": 500.0},
					"realizedBadDebt": map[string]interface{}{"underlying": "0", "usd": 0.0},
					"state": map[string]interface{}{
						"timestamp":    1762214400,
						"supplyAssets": "1000000000",
						"borrowAssets": "1200000000",
						"utilization":  1.2,
						"price":        "1000000000000000000000000000000000000",
					},
					"supplyingVaults": []map[string]interface{}{
						{"address": "0xVAULT1", "name": "Prime Vault"},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	market, err := client.MarketByUniqueKey(context.Background(), "0xabcdef", 1)
	if err != nil {
		t.Fatalf("MarketByUniqueKey: %v", err)
	}

	if market.UniqueKey != "0xabcdef" {
		t.Errorf("expected lower-cased key 0xabcdef, got %s", market.UniqueKey)
	}
	if market.Chain != "ethereum" {
		t.Errorf("expected chain ethereum, got %s", market.Chain)
	}
	if market.LiquidationLTV != 0.915 {
		t.Errorf("expected lltv 0.915, got %f", market.LiquidationLTV)
	}
	if market.CollateralAsset.Decimals != 18 {
		t.Errorf("expected collateral decimals 18, got %d", market.CollateralAsset.Decimals)
	}
	if market.CollateralAsset.SpotPrice() != 0.02 {
		t.Errorf("expected collateral spot 0.02, got %f", market.CollateralAsset.SpotPrice())
	}
	if market.State.SupplyAssets != 1e9 {
		t.Errorf("expected supplyAssets 1e9, got %f", market.State.SupplyAssets)
	}
	if market.State.OraclePriceRaw != 1e36 {
		t.Errorf("expected raw oracle price 1e36, got %g", market.State.OraclePriceRaw)
	}
	if market.BadDebtUSD != 500 {
		t.Errorf("expected badDebt 500, got %f", market.BadDebtUSD)
	}
	if len(market.SupplyingVaults) != 1 || market.SupplyingVaults[0].Address != "0xvault1" {
		t.Errorf("unexpected supplying vaults: %+v", market.SupplyingVaults)
	}
}

func TestClient_MarketByUniqueKey_OracleDataFallback(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			if !strings.Contains(req.Query, "scaleFactor") {
				t.Error("expected first attempt to request oracle data")
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"errors": []map[string]interface{}{
					{"message": "Cannot return null for non-nullable field scaleFactor"},
				},
			})
			return
		}
		if strings.Contains(req.Query, "scaleFactor") {
			t.Error("expected fallback attempt without oracle data")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"marketByUniqueKey": map[string]interface{}{
					"uniqueKey": "0xkey",
					"oracle":    map[string]interface{}{"address": "0xO", "type": "CustomOracle"},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	market, err := client.MarketByUniqueKey(context.Background(), "0xkey", 1)
	if err != nil {
		t.Fatalf("MarketByUniqueKey: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
	if market.Oracle.Type != "CustomOracle" {
		t.Errorf("expected oracle type from fallback, got %s", market.Oracle.Type)
	}
}

func TestClient_VaultsByMarketKeys_Pagination(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		json.NewDecoder(r.Body).Decode(&req)

		items := []map[string]interface{}{}
		if calls.Add(1) == 1 {
			for i := 0; i < vaultPageSize; i++ {
				items = append(items, map[string]interface{}{
					"address": "0xA",
					"chain":   map[string]interface{}{"id": 1, "network": "ethereum"},
				})
			}
		} else {
			items = append(items, map[string]interface{}{
				"address": "0xB",
				"chain":   map[string]interface{}{"id": 1, "network": "ethereum"},
				"state": map[string]interface{}{
					"curator":        "0xCURATOR",
					"totalAssetsUsd": 1500000.5,
					"curators": []map[string]interface{}{
						{"name": "Steakhouse", "verified": true},
					},
					"allocation": []map[string]interface{}{
						{
							"market": map[string]interface{}{
								"uniqueKey":       "0xMKT",
								"collateralAsset": map[string]interface{}{"symbol": "xUSD"},
								"loanAsset":       map[string]interface{}{"symbol": "USDC"},
							},
							"supplyAssetsUsd": 42000.0,
							"supplyCap":       "0",
							"enabled":         true,
							"removableAt":     nil,
						},
					},
				},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"vaults": map[string]interface{}{
					"items": items,
					"pageInfo": map[string]interface{}{
						"count":      len(items),
						"countTotal": vaultPageSize + 1,
					},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	vaults, err := client.VaultsByMarketKeys(context.Background(), 1, []string{"0xmkt"})
	if err != nil {
		t.Fatalf("VaultsByMarketKeys: %v", err)
	}
	if len(vaults) != vaultPageSize+1 {
		t.Fatalf("expected %d vaults, got %d", vaultPageSize+1, len(vaults))
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 pages, got %d", calls.Load())
	}

	last := vaults[len(vaults)-1]
	if last.Address != "0xb" {
		t.Errorf("expected lower-cased address 0xb, got %s", last.Address)
	}
	if last.CuratorName != "Steakhouse" || !last.CuratorVerified {
		t.Errorf("expected verified curator Steakhouse, got %q verified=%v", last.CuratorName, last.CuratorVerified)
	}
	if len(last.Allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(last.Allocations))
	}
	if last.Allocations[0].MarketUniqueKey != "0xmkt" {
		t.Errorf("expected allocation market 0xmkt, got %s", last.Allocations[0].MarketUniqueKey)
	}
	if last.Allocations[0].RemovableAt != 0 {
		t.Errorf("expected zero removableAt for null, got %d", last.Allocations[0].RemovableAt)
	}
}

func TestClient_RetryOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"vaultByAddress": map[string]interface{}{"address": "0xV"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRequestDelay(0), WithMaxRetries(3))
	client.retryDelay = time.Millisecond
	client.maxDelay = 5 * time.Millisecond

	vault, err := client.VaultByAddress(context.Background(), "0xv", 1)
	if err != nil {
		t.Fatalf("VaultByAddress after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if vault.Address != "0xv" {
		t.Errorf("expected vault 0xv, got %s", vault.Address)
	}
}

func TestClient_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRequestDelay(0), WithMaxRetries(2))
	client.retryDelay = time.Millisecond

	_, err := client.VaultByAddress(context.Background(), "0xv", 1)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "max retries exceeded") {
		t.Errorf("expected retry exhaustion error, got %v", err)
	}
}

func TestClient_NonRetryableGraphQLError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]interface{}{
				{"message": "Unknown argument \"bogus\" on field \"vaults\""},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRequestDelay(0))

	_, err := client.VaultByAddress(context.Background(), "0xv", 1)
	if err == nil {
		t.Fatal("expected graphql error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retry on schema error, got %d calls", calls.Load())
	}
}

func TestClient_AllocationHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"vaultByAddress": map[string]interface{}{
					"address": "0xV",
					"historicalState": map[string]interface{}{
						"allocation": []map[string]interface{}{
							{
								"market": map[string]interface{}{"uniqueKey": "0xTOXIC"},
								"supplyAssetsUsd": []map[string]interface{}{
									{"x": 1761696000, "y": 50000.0},
									{"x": 1761782400, "y": nil},
									{"x": 1761868800, "y": 0.5},
								},
								"supplyCap": []map[string]interface{}{
									{"x": 1761696000, "y": "1000000000000"},
								},
							},
							{
								"market": map[string]interface{}{"uniqueKey": "0xCLEAN"},
								"supplyAssetsUsd": []map[string]interface{}{
									{"x": 1761696000, "y": 99.0},
								},
							},
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	points, err := client.AllocationHistory(context.Background(), "0xv", 1, 1756684800, 1769817600,
		func(key string) bool { return key == "0xtoxic" })
	if err != nil {
		t.Fatalf("AllocationHistory: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("expected 2 points (null sample dropped, clean market filtered), got %d", len(points))
	}
	if points[0].SupplyAssetsUSD != 50000 {
		t.Errorf("expected first point 50000, got %f", points[0].SupplyAssetsUSD)
	}
	if points[0].SupplyCap == nil || *points[0].SupplyCap != 1e12 {
		t.Errorf("expected cap 1e12 on first point, got %v", points[0].SupplyCap)
	}
	if points[1].SupplyCap != nil {
		t.Errorf("expected nil cap on second point, got %v", *points[1].SupplyCap)
	}
}

func TestClient_AdminEvents_EnrichmentDegrades(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")

		calls.Add(1)
		if strings.Contains(req.Query, "CapEventData") {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"errors": []map[string]interface{}{
					{"message": "Cannot return null for non-nullable field Market.uniqueKey"},
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"vaultByAddress": map[string]interface{}{
					"adminEvents": map[string]interface{}{
						"items": []map[string]interface{}{
							{"hash": "0xh1", "timestamp": 1762000000, "type": "SetCap"},
							{"hash": "0xh2", "timestamp": 1762100000, "type": "SetWithdrawQueue"},
						},
						"pageInfo": map[string]interface{}{"countTotal": 2, "count": 2},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	events, err := client.AdminEvents(context.Background(), "0xv", 1, func(string) bool { return false })
	if err != nil {
		t.Fatalf("AdminEvents: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 bare events despite enrichment failure, got %d", len(events))
	}
	if events[0].Cap != nil {
		t.Errorf("expected nil cap when enrichment fails, got %v", *events[0].Cap)
	}
	if !events[1].TouchesToxicMarket {
		t.Error("expected queue event marked relevant")
	}
}

func TestClient_AdminEvents_CapEnrichment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")

		items := []map[string]interface{}{
			{"hash": "0xh1", "timestamp": 1762000000, "type": "SetCap"},
			{"hash": "0xh2", "timestamp": 1762100000, "type": "SetWithdrawQueue"},
		}
		if strings.Contains(req.Query, "CapEventData") {
			items = []map[string]interface{}{
				{"hash": "0xh1", "type": "SetCap", "data": map[string]interface{}{"cap": "0"}},
				{"hash": "0xh2", "type": "SetWithdrawQueue", "data": map[string]interface{}{
					"withdrawQueue": []map[string]interface{}{{"uniqueKey": "0xCLEAN"}},
				}},
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"vaultByAddress": map[string]interface{}{
					"adminEvents": map[string]interface{}{
						"items":    items,
						"pageInfo": map[string]interface{}{"countTotal": 2, "count": 2},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	events, err := client.AdminEvents(context.Background(), "0xv", 1, func(key string) bool { return key == "0xtoxic" })
	if err != nil {
		t.Fatalf("AdminEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !events[0].CapIsZero() {
		t.Error("expected SetCap event enriched with cap=0")
	}
	if len(events[1].QueueMarketKeys) != 1 || events[1].QueueMarketKeys[0] != "0xclean" {
		t.Errorf("unexpected queue keys: %v", events[1].QueueMarketKeys)
	}
}

func TestRateGate_SpacesRequests(t *testing.T) {
	gate := newRateGate(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := gate.wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 40*time.Millisecond {
		t.Errorf("expected at least 40ms spacing for 3 calls, got %v", elapsed)
	}
}

func TestRateGate_ContextCancelled(t *testing.T) {
	gate := newRateGate(time.Hour)
	ctx := context.Background()

	if err := gate.wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := gate.wait(cancelled); err == nil {
		t.Error("expected context error on cancelled wait")
	}
}

func TestClient_RecordsRequestMetrics(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"vaultByAddress": map[string]interface{}{"address": "0xV"},
			},
		})
	}))
	defer server.Close()

	requestsBefore := testutil.ToFloat64(observability.DefaultMetrics.APIRequests.WithLabelValues("vault_by_address"))
	retriesBefore := testutil.ToFloat64(observability.DefaultMetrics.APIRetries)
	rateLimitedBefore := testutil.ToFloat64(observability.DefaultMetrics.APIErrors.WithLabelValues("rate_limited"))

	client := NewClient(server.URL, WithRequestDelay(0), WithMaxRetries(3))
	client.retryDelay = time.Millisecond
	client.maxDelay = 5 * time.Millisecond

	if _, err := client.VaultByAddress(context.Background(), "0xv", 1); err != nil {
		t.Fatalf("VaultByAddress: %v", err)
	}

	if got := testutil.ToFloat64(observability.DefaultMetrics.APIRequests.WithLabelValues("vault_by_address")) - requestsBefore; got != 3 {
		t.Errorf("requests delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.APIRetries) - retriesBefore; got != 2 {
		t.Errorf("retries delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.APIErrors.WithLabelValues("rate_limited")) - rateLimitedBefore; got != 2 {
		t.Errorf("rate_limited errors delta = %v, want 2", got)
	}
}

func TestClient_RecordsPageMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"markets": map[string]interface{}{
					"items": []map[string]interface{}{{
						"uniqueKey":       "0xMKT",
						"collateralAsset": map[string]interface{}{"symbol": "xUSD"},
						"loanAsset":       map[string]interface{}{"symbol": "USDC"},
					}},
					"pageInfo": map[string]interface{}{"count": 1, "countTotal": 1},
				},
			},
		})
	}))
	defer server.Close()

	pagesBefore := testutil.ToFloat64(observability.DefaultMetrics.APIPagesFetched.WithLabelValues("markets"))

	client := newTestClient(server.URL)
	if _, err := client.MarketsByChain(context.Background(), 1); err != nil {
		t.Fatalf("MarketsByChain: %v", err)
	}

	if got := testutil.ToFloat64(observability.DefaultMetrics.APIPagesFetched.WithLabelValues("markets")) - pagesBefore; got != 1 {
		t.Errorf("pages delta = %v, want 1", got)
	}
}
