package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wisphq/wisp"
)

// RateLimitOptions configures RateLimit's token bucket per client address.
type RateLimitOptions struct {
	// Rate is the sustained rate of allowed requests per second.
	Rate rate.Limit
	// Burst is the maximum burst size above Rate.
	Burst int
	// IdleTimeout evicts a client's bucket once it's gone unseen this long,
	// so long-running processes don't accumulate buckets forever.
	IdleTimeout time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit is an in-memory, per-client-address token-bucket limiter: one
// *rate.Limiter per remote address, with a background reaper evicting
// stale entries. Each RateLimit call owns its own state, so independent
// limiters can be mounted on different route groups.
func RateLimit(opts RateLimitOptions) *Middleware {
	if opts.Rate == 0 {
		opts.Rate = 10
	}
	if opts.Burst == 0 {
		opts.Burst = 30
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 3 * time.Minute
	}

	var mu sync.Mutex
	visitors := make(map[string]*visitor)

	go func() {
		for range time.Tick(time.Minute) {
			mu.Lock()
			for addr, v := range visitors {
				if time.Since(v.lastSeen) > opts.IdleTimeout {
					delete(visitors, addr)
				}
			}
			mu.Unlock()
		}
	}()

	return &Middleware{
		Name: "rate-limit",
		Fn: func(req *wisp.Request) error {
			addr := req.Client()

			mu.Lock()
			v, exists := visitors[addr]
			if !exists {
				v = &visitor{limiter: rate.NewLimiter(opts.Rate, opts.Burst)}
				visitors[addr] = v
			}
			v.lastSeen = time.Now()
			limiter := v.limiter
			mu.Unlock()

			if !limiter.Allow() {
				return req.Abort(429, "Too many requests")
			}
			return nil
		},
	}
}
