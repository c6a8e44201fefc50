// Package ratelimiter keeps one token bucket per identity.
package ratelimiter

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// maxTracked bounds memory when many identities show up at once.
const maxTracked = 10_000

// UserRateLimiter manages rate limiting for multiple identities. An identity that stays
// quiet for the expiration time is forgotten and starts again with a full bucket.
type UserRateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// New creates a limiter allowing perSecond requests on average with the given burst.
func New(perSecond float64, burst int, expiration time.Duration) *UserRateLimiter {
	return &UserRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTracked, nil, expiration),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (u *UserRateLimiter) getLimiter(identity string) *rate.Limiter {
	u.mu.Lock()
	defer u.mu.Unlock()

	if l, ok := u.limiters.Get(identity); ok {
		// Add refreshes the expiry.
		u.limiters.Add(identity, l)
		return l
	}
	l := rate.NewLimiter(u.rate, u.burst)
	u.limiters.Add(identity, l)
	return l
}

// Len returns the number of tracked identities.
func (u *UserRateLimiter) Len() int {
	return u.limiters.Len()
}

// Check reports whether a request from identity may proceed now and, when refused,
// how long identity should wait. A refused check consumes no token.
func (u *UserRateLimiter) Check(identity string) (bool, time.Duration) {
	res := u.getLimiter(identity).Reserve()
	if !res.OK() {
		return false, time.Second
	}
	delay := res.Delay()
	if delay == 0 {
		return true, 0
	}
	res.Cancel()
	return false, delay
}
