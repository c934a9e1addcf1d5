package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Endpoint identifies a family of remote calls that shares one request budget.
type Endpoint string

const (
	// EndpointClosing covers the per-instrument closing-price endpoint
	EndpointClosing Endpoint = "closing"
	// EndpointFund covers the per-instrument fund info endpoint
	EndpointFund Endpoint = "fund"
	// EndpointOverview covers the market-wide overview endpoint
	EndpointOverview Endpoint = "overview"
)

// Limiter manages rate limits for the remote API endpoint families.
type Limiter struct {
	limiters map[Endpoint]*rate.Limiter
	mu       sync.RWMutex
}

// New returns a limiter with conservative per-endpoint budgets. The TSETMC
// CDN tolerates a handful of requests per second per path before throttling,
// so the per-instrument endpoints get a small burst and the overview
// endpoint, called once per cycle, gets less.
func New() *Limiter {
	return &Limiter{
		limiters: map[Endpoint]*rate.Limiter{
			EndpointClosing:  rate.NewLimiter(rate.Limit(8), 4),
			EndpointFund:     rate.NewLimiter(rate.Limit(8), 4),
			EndpointOverview: rate.NewLimiter(rate.Limit(2), 1),
		},
	}
}

// NewUnlimited returns a limiter that never blocks. Used by tests so that
// polling cycles against local mock servers run at full speed.
func NewUnlimited() *Limiter {
	return &Limiter{
		limiters: map[Endpoint]*rate.Limiter{
			EndpointClosing:  rate.NewLimiter(rate.Inf, 1),
			EndpointFund:     rate.NewLimiter(rate.Inf, 1),
			EndpointOverview: rate.NewLimiter(rate.Inf, 1),
		},
	}
}

// Wait blocks until the limiter permits a request for the given endpoint.
// It returns an error if the context is canceled before the request can
// proceed.
func (l *Limiter) Wait(ctx context.Context, ep Endpoint) error {
	l.mu.RLock()
	limiter, exists := l.limiters[ep]
	l.mu.RUnlock()

	if !exists {
		// No limiter configured for this endpoint, allow the request
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether a request for the given endpoint may happen now.
func (l *Limiter) Allow(ep Endpoint) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[ep]
	l.mu.RUnlock()

	if !exists {
		return true
	}

	return limiter.Allow()
}
