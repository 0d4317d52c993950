// Package response reconstructs when each vault's curator reacted to the
// collapse, from three independent evidence streams: the daily allocation
// series, the admin event log, and the reallocation log. Any one stream can
// be missing; the earliest decisive action across whatever survives wins.
package response

import (
	"log"
	"sort"

	"morpho-exposure-lab/internal/domain"
)

// negligibleUSD is the allocation level below which a position counts as
// fully unwound. Dust rounding keeps many exited positions slightly above
// zero.
const negligibleUSD = 1.0

const secondsPerDay = 86400

// Reconstructor builds curator response profiles.
type Reconstructor struct {
	crisisTS    int64
	preCrisisTS int64
	isToxicKey  func(marketKey string) bool
	logger      *log.Logger
}

// Options configures a Reconstructor.
type Options struct {
	CrisisTS    int64
	PreCrisisTS int64

	// IsToxicMarketKey reports whether a market key belongs to the toxic set.
	// Used to judge queue contents on queue-rewrite events.
	IsToxicMarketKey func(marketKey string) bool

	Logger *log.Logger
}

// NewReconstructor creates a reconstructor.
func NewReconstructor(opts Options) *Reconstructor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	isToxic := opts.IsToxicMarketKey
	if isToxic == nil {
		isToxic = func(string) bool { return false }
	}
	return &Reconstructor{
		crisisTS:    opts.CrisisTS,
		preCrisisTS: opts.PreCrisisTS,
		isToxicKey:  isToxic,
		logger:      logger,
	}
}

// Inputs carries one vault's evidence streams. Slices may be empty.
type Inputs struct {
	Exposures     []domain.Exposure
	Allocations   []domain.AllocationPoint
	AdminEvents   []domain.AdminEvent
	Reallocations []domain.ReallocationEvent
}

// BuildProfile reconstructs the response timeline for one vault.
func (r *Reconstructor) BuildProfile(in Inputs) domain.CuratorResponseProfile {
	profile := domain.CuratorResponseProfile{}
	if len(in.Exposures) > 0 {
		first := in.Exposures[0]
		profile.VaultAddress = first.VaultAddress
		profile.VaultName = first.VaultName
		profile.ChainID = first.ChainID
		profile.Chain = first.Chain
		profile.CuratorName = first.CuratorName
		profile.VaultTVLUSD = first.VaultTotalAssetsUSD
		profile.DiscoveryMethod = first.DiscoveryMethod
		profile.ExposureStatus = aggregateStatus(in.Exposures)
	}

	r.analyzeAllocations(in.Allocations, &profile)
	r.analyzeAdminEvents(in.AdminEvents, &profile)
	r.analyzeReallocations(in.Reallocations, &profile)
	r.classify(&profile)
	return profile
}

// aggregateStatus reduces per-market statuses to one vault-level reading.
// A single still-active exposure dominates everything else.
func aggregateStatus(exposures []domain.Exposure) domain.ExposureStatus {
	priority := map[domain.ExposureStatus]int{
		domain.StatusActiveExposure:       6,
		domain.StatusStoppedSupplying:     5,
		domain.StatusWithdrewDuringCrisis: 4,
		domain.StatusWithdrewPreCrisis:    3,
		domain.StatusFullyExited:          2,
		domain.StatusHistoricallyExposed:  1,
	}
	best := exposures[0].Status
	for _, exp := range exposures[1:] {
		if priority[exp.Status] > priority[best] {
			best = exp.Status
		}
	}
	return best
}

func (r *Reconstructor) analyzeAllocations(points []domain.AllocationPoint, profile *domain.CuratorResponseProfile) {
	if len(points) == 0 {
		return
	}

	sorted := make([]domain.AllocationPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	for _, p := range sorted {
		if p.SupplyAssetsUSD > profile.PeakToxicSupplyUSD {
			profile.PeakToxicSupplyUSD = p.SupplyAssetsUSD
			profile.PeakToxicTS = p.Timestamp
		}
	}

	for _, p := range sorted {
		if p.Timestamp < profile.PeakToxicTS {
			continue
		}
		if p.SupplyAssetsUSD < negligibleUSD {
			profile.FirstZeroAllocTS = p.Timestamp
			break
		}
	}

	for _, p := range sorted {
		if p.Timestamp >= r.crisisTS && p.Timestamp < r.crisisTS+secondsPerDay && profile.AllocAtCrisisUSD == nil {
			v := p.SupplyAssetsUSD
			profile.AllocAtCrisisUSD = &v
		}
		if p.Timestamp >= r.preCrisisTS && p.Timestamp < r.preCrisisTS+secondsPerDay && profile.AllocWeekBeforeUSD == nil {
			v := p.SupplyAssetsUSD
			profile.AllocWeekBeforeUSD = &v
		}
	}
}

func (r *Reconstructor) analyzeAdminEvents(events []domain.AdminEvent, profile *domain.CuratorResponseProfile) {
	sorted := make([]domain.AdminEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	for _, ev := range sorted {
		if ev.TouchesToxicMarket {
			profile.AdminEventCount++
		}

		// Cap events carry no market reference in the event log; a vault in
		// this data set is toxic-exposed, so any cap zeroing counts.
		if ev.CapIsZero() && profile.FirstCapZeroTS == 0 {
			profile.FirstCapZeroTS = ev.Timestamp
		}

		if ev.Type == domain.AdminEventSetWithdrawQueue && profile.QueueRemovedToxicTS == 0 && len(ev.QueueMarketKeys) > 0 {
			hasToxic := false
			for _, key := range ev.QueueMarketKeys {
				if r.isToxicKey(key) {
					hasToxic = true
					break
				}
			}
			if !hasToxic {
				profile.QueueRemovedToxicTS = ev.Timestamp
			}
		}
	}
}

func (r *Reconstructor) analyzeReallocations(events []domain.ReallocationEvent, profile *domain.CuratorResponseProfile) {
	for _, ev := range events {
		if !ev.IsToxicMarket {
			continue
		}
		switch ev.Type {
		case domain.ReallocTypeWithdraw:
			profile.ToxicWithdrawCount++
			if profile.FirstToxicWithdrawTS == 0 || ev.Timestamp < profile.FirstToxicWithdrawTS {
				profile.FirstToxicWithdrawTS = ev.Timestamp
			}
			if ev.Timestamp > profile.LastToxicWithdrawTS {
				profile.LastToxicWithdrawTS = ev.Timestamp
			}
		case domain.ReallocTypeSupply:
			profile.ToxicSupplyCount++
		}
	}
}

// classify picks the earliest decisive action and buckets the response.
func (r *Reconstructor) classify(profile *domain.CuratorResponseProfile) {
	earliest := int64(0)
	for _, ts := range []int64{profile.FirstZeroAllocTS, profile.FirstCapZeroTS, profile.FirstToxicWithdrawTS} {
		if ts > 0 && (earliest == 0 || ts < earliest) {
			earliest = ts
		}
	}

	if earliest == 0 {
		switch profile.ExposureStatus {
		case domain.StatusActiveExposure:
			profile.ResponseClass = domain.ResponseStayedExposed
		case domain.StatusHistoricallyExposed, domain.StatusFullyExited, domain.StatusStoppedSupplying:
			profile.ResponseClass = domain.ResponseExitedTimingUnknown
		default:
			profile.ResponseClass = domain.ResponseUnknown
		}
		return
	}

	profile.EarliestActionTS = earliest
	days := float64(r.crisisTS-earliest) / secondsPerDay
	profile.DaysBeforeCrisis = days

	switch {
	case days > 7:
		profile.ResponseClass = domain.ResponseProactive
	case days > 1:
		profile.ResponseClass = domain.ResponseEarlyReactor
	case days > 0:
		profile.ResponseClass = domain.ResponseLastMinute
	case days > -3:
		profile.ResponseClass = domain.ResponseDuringCrisis
	case days > -14:
		profile.ResponseClass = domain.ResponseSlowReactor
	default:
		profile.ResponseClass = domain.ResponseVeryLate
	}
}
