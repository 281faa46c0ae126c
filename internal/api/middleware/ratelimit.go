package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mcoot/roomhost/internal/api/apierr"
)

type keyLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out a token bucket per client IP and route
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once

	// OnReject is called with the route of every rejected request
	OnReject func(route string)
}

// NewRateLimiter creates a limiter and starts evicting idle buckets
func NewRateLimiter(rps float64, burst int, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*keyLimiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go rl.gc()
	return rl
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	kl, ok := rl.limiters[key]
	if ok {
		kl.lastSeen = time.Now()
		return kl.lim
	}
	lim := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[key] = &keyLimiter{lim: lim, lastSeen: time.Now()}
	return lim
}

func (rl *RateLimiter) gc() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for k, v := range rl.limiters {
				if now.Sub(v.lastSeen) > rl.ttl {
					delete(rl.limiters, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the eviction goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if !rl.get(clientIP(r.RemoteAddr) + "|" + route).Allow() {
			if rl.OnReject != nil {
				rl.OnReject(route)
			}
			w.Header().Set("Retry-After", "1")
			apierr.WriteError(w, apierr.NewRateLimitedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
