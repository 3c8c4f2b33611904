package worker

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Gate is the single rate-limit token gate every fetch in a run passes
// through. The ceiling is domain-wide, not per path: all callers share one
// limiter regardless of which URL they fetch.
type Gate struct {
	limiter *rate.Limiter
	issued  atomic.Int64
}

// NewGate creates a gate with the given requests-per-second ceiling.
// Burst is fixed at 1 so the ceiling is a hard per-second cap.
func NewGate(requestsPerSecond float64) *Gate {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Gate{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Wait blocks until a token is available or the context is done.
func (g *Gate) Wait(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	g.issued.Add(1)
	return nil
}

// Issued returns the number of tokens handed out so far.
func (g *Gate) Issued() int64 {
	return g.issued.Load()
}
