package gatewayhttp

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-key requests-per-minute budget. Grounded on the
// teacher's gateway.RateLimiter usage shape (NewRateLimiter(rpm, burst),
// Enabled, Allow), whose own implementation is not present anywhere in the
// retrieved corpus; built fresh on top of golang.org/x/time/rate, the
// limiter library the corpus already depends on for this exact purpose.
type RateLimiter struct {
	rpm   int
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter returns a limiter granting rpm requests per minute per key,
// with up to burst requests allowed instantaneously. rpm <= 0 disables
// limiting entirely (Allow always returns true).
func NewRateLimiter(rpm, burst int) *RateLimiter {
	return &RateLimiter{
		rpm:      rpm,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Enabled reports whether this limiter actually restricts anything.
func (rl *RateLimiter) Enabled() bool {
	return rl.rpm > 0
}

// Allow reports whether a request keyed by key may proceed now, consuming
// one token from that key's bucket if so. Always true when disabled.
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.Enabled() {
		return true
	}
	rl.mu.Lock()
	lim, ok := rl.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(rl.rpm)/60.0), rl.burst)
		rl.limiters[key] = lim
	}
	rl.mu.Unlock()
	return lim.Allow()
}
