package domain

// Asset represents a fungible token on a specific chain.
// Identity is (chain_id, address); refreshed on each pull, never mutated in place.
type Asset struct {
	ChainID      int64
	Address      string // lower-cased hex
	Symbol       string
	Name         string
	Decimals     int
	SpotPriceUSD *float64 // independently sourced spot price (nullable)
}

// SpotPrice returns the spot price or 0 when absent.
func (a Asset) SpotPrice() float64 {
	if a.SpotPriceUSD == nil {
		return 0
	}
	return *a.SpotPriceUSD
}
