package domain

// Reallocation event types as reported by the protocol.
const (
	ReallocTypeWithdraw = "ReallocateWithdraw"
	ReallocTypeSupply   = "ReallocateSupply"
)

// ReallocationEvent is one fund-movement transaction between a vault and a market.
type ReallocationEvent struct {
	VaultAddress    string
	VaultName       string
	ChainID         int64
	MarketUniqueKey string
	Type            string // ReallocateWithdraw | ReallocateSupply
	Timestamp       int64
	TxHash          string
	BlockNumber     int64
	Caller          string
	Assets          float64
	Shares          float64
	IsToxicMarket   bool
}

// Admin event types that can mark a decisive risk-reducing action.
const (
	AdminEventSetCap           = "SetCap"
	AdminEventSubmitCap        = "SubmitCap"
	AdminEventSetSupplyQueue   = "SetSupplyQueue"
	AdminEventSetWithdrawQueue = "SetWithdrawQueue"
)

// AdminEvent is one administrative configuration event on a vault.
type AdminEvent struct {
	VaultAddress string
	ChainID      int64
	Type         string
	Timestamp    int64
	TxHash       string

	// Cap value for SetCap/SubmitCap events; nil when enrichment failed.
	Cap *float64

	// QueueMarketKeys lists the market keys in the new queue for queue events.
	QueueMarketKeys []string

	// TouchesToxicMarket is derived at ingestion: the event's market (or queue
	// contents) reference a toxic market.
	TouchesToxicMarket bool
}

// CapIsZero reports whether the event sets a supply cap to exactly zero.
func (e AdminEvent) CapIsZero() bool {
	return (e.Type == AdminEventSetCap || e.Type == AdminEventSubmitCap) &&
		e.Cap != nil && *e.Cap == 0
}
