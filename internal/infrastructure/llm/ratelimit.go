package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"NewsCurator/internal/ports"
)

// RateLimited spaces out completion calls to stay under a provider quota.
type RateLimited struct {
	next    ports.ChatModel
	limiter *rate.Limiter
}

var _ ports.ChatModel = (*RateLimited)(nil)

// NewRateLimited wraps next; perMinute <= 0 returns next unchanged.
func NewRateLimited(next ports.ChatModel, perMinute int) ports.ChatModel {
	if perMinute <= 0 {
		return next
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Complete waits for a token, then delegates.
func (r *RateLimited) Complete(ctx context.Context, req ports.ChatRequest) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.Complete(ctx, req)
}
