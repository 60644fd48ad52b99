package dashboard

import (
	"golang.org/x/time/rate"
)

// RateLimiter throttles provisioning submissions. Unlike a waiting limiter it
// rejects requests over the limit so the client sees 429 immediately.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter allowing rps submissions per second
// with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Allow reports whether a submission may proceed now.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}
