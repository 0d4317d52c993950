package morpho

// Raw GraphQL payload shapes. Numeric fields arrive as a mix of JSON
// numbers, big-integer strings and nulls depending on the field, so
// anything coming off the chain is declared interface{} and coerced
// with the entity helpers during conversion.

type rawPageInfo struct {
	Count      int `json:"count"`
	CountTotal int `json:"countTotal"`
	Limit      int `json:"limit"`
	Skip       int `json:"skip"`
}

type rawAddress struct {
	Address string `json:"address"`
}

type rawAsset struct {
	Address  string      `json:"address"`
	Symbol   string      `json:"symbol"`
	Name     string      `json:"name"`
	Decimals interface{} `json:"decimals"`
	PriceUsd interface{} `json:"priceUsd"`
}

type rawChain struct {
	ID      interface{} `json:"id"`
	Network string      `json:"network"`
}

type rawOracleData struct {
	BaseFeedOne      *rawAddress `json:"baseFeedOne"`
	BaseFeedTwo      *rawAddress `json:"baseFeedTwo"`
	QuoteFeedOne     *rawAddress `json:"quoteFeedOne"`
	QuoteFeedTwo     *rawAddress `json:"quoteFeedTwo"`
	ScaleFactor      interface{} `json:"scaleFactor"`
	BaseOracleVault  *rawAddress `json:"baseOracleVault"`
	QuoteOracleVault *rawAddress `json:"quoteOracleVault"`
}

type rawOracle struct {
	Address string         `json:"address"`
	Type    string         `json:"type"`
	Data    *rawOracleData `json:"data"`
}

type rawDebt struct {
	Underlying interface{} `json:"underlying"`
	USD        interface{} `json:"usd"`
}

type rawWarning struct {
	Type     string                 `json:"type"`
	Level    string                 `json:"level"`
	Metadata map[string]interface{} `json:"metadata"`
}

type rawMarketState struct {
	Timestamp           interface{} `json:"timestamp"`
	BlockNumber         interface{} `json:"blockNumber"`
	SupplyAssets        interface{} `json:"supplyAssets"`
	BorrowAssets        interface{} `json:"borrowAssets"`
	SupplyAssetsUsd     interface{} `json:"supplyAssetsUsd"`
	BorrowAssetsUsd     interface{} `json:"borrowAssetsUsd"`
	CollateralAssets    interface{} `json:"collateralAssets"`
	CollateralAssetsUsd interface{} `json:"collateralAssetsUsd"`
	LiquidityAssets     interface{} `json:"liquidityAssets"`
	LiquidityAssetsUsd  interface{} `json:"liquidityAssetsUsd"`
	Utilization         interface{} `json:"utilization"`
	Price               interface{} `json:"price"`
}

type rawMarket struct {
	UniqueKey         string          `json:"uniqueKey"`
	Listed            bool            `json:"listed"`
	Lltv              interface{}     `json:"lltv"`
	CreationTimestamp interface{}     `json:"creationTimestamp"`
	LoanAsset         *rawAsset       `json:"loanAsset"`
	CollateralAsset   *rawAsset       `json:"collateralAsset"`
	Oracle            *rawOracle      `json:"oracle"`
	BadDebt           *rawDebt        `json:"badDebt"`
	RealizedBadDebt   *rawDebt        `json:"realizedBadDebt"`
	Warnings          []rawWarning    `json:"warnings"`
	State             *rawMarketState `json:"state"`
	SupplyingVaults   []struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"supplyingVaults"`
}

type rawMarketsPage struct {
	Markets struct {
		Items    []rawMarket `json:"items"`
		PageInfo rawPageInfo `json:"pageInfo"`
	} `json:"markets"`
}

type rawMarketByKey struct {
	MarketByUniqueKey *rawMarket `json:"marketByUniqueKey"`
}

type rawMarketLite struct {
	UniqueKey       string      `json:"uniqueKey"`
	LoanAsset       *rawAsset   `json:"loanAsset"`
	CollateralAsset *rawAsset   `json:"collateralAsset"`
	Lltv            interface{} `json:"lltv"`
}

type rawAllocation struct {
	Market          *rawMarketLite `json:"market"`
	SupplyAssets    interface{}    `json:"supplyAssets"`
	SupplyAssetsUsd interface{}    `json:"supplyAssetsUsd"`
	SupplyCap       interface{}    `json:"supplyCap"`
	SupplyCapUsd    interface{}    `json:"supplyCapUsd"`
	Enabled         bool           `json:"enabled"`
	RemovableAt     interface{}    `json:"removableAt"`
}

type rawCurator struct {
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

type rawVaultState struct {
	Timestamp      interface{}     `json:"timestamp"`
	TotalAssets    interface{}     `json:"totalAssets"`
	TotalAssetsUsd interface{}     `json:"totalAssetsUsd"`
	SharePrice     interface{}     `json:"sharePriceNumber"`
	SharePriceUsd  interface{}     `json:"sharePriceUsd"`
	Timelock       interface{}     `json:"timelock"`
	Curator        string          `json:"curator"`
	Guardian       string          `json:"guardian"`
	Owner          string          `json:"owner"`
	Curators       []rawCurator    `json:"curators"`
	Allocation     []rawAllocation `json:"allocation"`
}

type rawVault struct {
	Address           string         `json:"address"`
	Name              string         `json:"name"`
	Symbol            string         `json:"symbol"`
	Listed            bool           `json:"listed"`
	CreationTimestamp interface{}    `json:"creationTimestamp"`
	Asset             *rawAsset      `json:"asset"`
	Chain             *rawChain      `json:"chain"`
	State             *rawVaultState `json:"state"`
}

type rawVaultsPage struct {
	Vaults struct {
		Items    []rawVault  `json:"items"`
		PageInfo rawPageInfo `json:"pageInfo"`
	} `json:"vaults"`
}

type rawVaultByAddress struct {
	VaultByAddress *rawVault `json:"vaultByAddress"`
}

type rawReallocate struct {
	Vault *struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"vault"`
	Market      *rawMarketLite `json:"market"`
	Type        string         `json:"type"`
	Timestamp   interface{}    `json:"timestamp"`
	Hash        string         `json:"hash"`
	BlockNumber interface{}    `json:"blockNumber"`
	Caller      string         `json:"caller"`
	Assets      interface{}    `json:"assets"`
	Shares      interface{}    `json:"shares"`
}

type rawReallocatesPage struct {
	VaultReallocates struct {
		Items    []rawReallocate `json:"items"`
		PageInfo rawPageInfo     `json:"pageInfo"`
	} `json:"vaultReallocates"`
}

type rawPoint struct {
	X interface{} `json:"x"`
	Y interface{} `json:"y"`
}

type rawHistoricalAllocation struct {
	Market          *rawMarketLite `json:"market"`
	SupplyAssetsUsd []rawPoint     `json:"supplyAssetsUsd"`
	SupplyCap       []rawPoint     `json:"supplyCap"`
}

type rawVaultHistory struct {
	VaultByAddress *struct {
		Address         string `json:"address"`
		Name            string `json:"name"`
		HistoricalState *struct {
			Allocation []rawHistoricalAllocation `json:"allocation"`
		} `json:"historicalState"`
	} `json:"vaultByAddress"`
}

type rawQueueEntry struct {
	UniqueKey string `json:"uniqueKey"`
}

type rawAdminEventData struct {
	Cap           interface{}     `json:"cap"`
	WithdrawQueue []rawQueueEntry `json:"withdrawQueue"`
	SupplyQueue   []rawQueueEntry `json:"supplyQueue"`
}

type rawAdminEvent struct {
	Hash      string             `json:"hash"`
	Timestamp interface{}        `json:"timestamp"`
	Type      string             `json:"type"`
	Data      *rawAdminEventData `json:"data"`
}

type rawAdminEventsPage struct {
	VaultByAddress *struct {
		AdminEvents struct {
			Items    []rawAdminEvent `json:"items"`
			PageInfo rawPageInfo     `json:"pageInfo"`
		} `json:"adminEvents"`
	} `json:"vaultByAddress"`
}
