package daemon

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// submitLimiter throttles submissions per account. A nil limiter allows
// everything.
type submitLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	accounts map[int64]*rate.Limiter
}

func newSubmitLimiter(perMinute, burst int) *submitLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &submitLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		accounts: make(map[int64]*rate.Limiter),
	}
}

func (l *submitLimiter) allow(accountID int64) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.accounts[accountID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.accounts[accountID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
