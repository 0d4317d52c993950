package domain

// ResponseClass classifies a curator's response speed relative to the crisis.
type ResponseClass string

const (
	ResponseProactive           ResponseClass = "PROACTIVE"
	ResponseEarlyReactor        ResponseClass = "EARLY_REACTOR"
	ResponseLastMinute          ResponseClass = "LAST_MINUTE"
	ResponseDuringCrisis        ResponseClass = "DURING_CRISIS"
	ResponseSlowReactor         ResponseClass = "SLOW_REACTOR"
	ResponseVeryLate            ResponseClass = "VERY_LATE"
	ResponseStayedExposed       ResponseClass = "STAYED_EXPOSED"
	ResponseExitedTimingUnknown ResponseClass = "EXITED_TIMING_UNKNOWN"
	ResponseUnknown             ResponseClass = "UNKNOWN"
)

// CuratorResponseProfile is the reconstructed response timeline for one vault.
// Built once per run from the vault's full event history.
type CuratorResponseProfile struct {
	VaultAddress string
	VaultName    string
	ChainID      int64
	Chain        string
	CuratorName  string

	ExposureStatus  ExposureStatus
	DiscoveryMethod DiscoveryMethod
	VaultTVLUSD     float64

	PeakToxicSupplyUSD float64
	PeakToxicTS        int64

	// Allocation level on the crisis day and one week before it.
	// Nil when the daily series has no point in that window.
	AllocAtCrisisUSD    *float64
	AllocWeekBeforeUSD  *float64

	// Decisive-action candidate timestamps, 0 when the stream yielded none.
	FirstZeroAllocTS        int64
	FirstCapZeroTS          int64
	FirstToxicWithdrawTS    int64
	LastToxicWithdrawTS     int64
	QueueRemovedToxicTS     int64

	ToxicWithdrawCount int
	ToxicSupplyCount   int
	AdminEventCount    int

	// EarliestActionTS is the minimum of the candidate timestamps, 0 when no
	// candidate exists.
	EarliestActionTS int64

	// DaysBeforeCrisis = (crisis_ts - earliest_action_ts) / 86400.
	DaysBeforeCrisis float64

	ResponseClass ResponseClass
}
