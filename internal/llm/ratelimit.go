package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to an underlying Client.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
}

// NewRateLimited allows at most perMinute calls per minute through to next,
// with a burst of one.
func NewRateLimited(next Client, perMinute int) *RateLimited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Available delegates to the wrapped client.
func (r *RateLimited) Available() bool {
	return r.next.Available()
}

// Generate waits for a token and then delegates.
func (r *RateLimited) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	if !r.next.Available() {
		return "", ErrUnavailable
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Generate(ctx, messages, opts)
}
