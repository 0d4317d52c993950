package morpho

import (
	"context"
	"sync"
	"time"
)

// rateGate enforces a minimum spacing between requests across all
// goroutines sharing a client.
type rateGate struct {
	mu    sync.Mutex
	next  time.Time
	delay time.Duration
}

func newRateGate(delay time.Duration) *rateGate {
	return &rateGate{delay: delay}
}

// wait blocks until the gate opens or the context is cancelled.
func (g *rateGate) wait(ctx context.Context) error {
	if g.delay <= 0 {
		return nil
	}

	g.mu.Lock()
	now := time.Now()
	wait := g.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	g.next = now.Add(wait + g.delay)
	g.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
