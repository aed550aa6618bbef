// Package ratelimit bounds the request rate against the booking host.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter caps outbound booking requests per second so a burst with
// aggressive retry jitter cannot trip the host's abuse protection.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter creates a limiter allowing rps requests per second with a
// burst allowance of the same size. rps <= 0 disables limiting.
func NewLimiter(rps int) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Wait blocks until a request may proceed or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
