package middleware

import (
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, ok := lc.limiters[key]
	lc.mu.RUnlock()
	if ok {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	// Another goroutine may have created it while we waited for the lock
	if limiter, ok := lc.limiters[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds drops all limiters when the cache grows past maxSize.
// Returns true if the cache was cleared.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if len(lc.limiters) <= maxSize {
		return false
	}
	lc.limiters = make(map[K]*rate.Limiter)
	return true
}

// GlobalRateLimiter provides a per-IP rate limiter for unauthenticated routes.
type GlobalRateLimiter struct {
	cache *limiterCache[string]
}

// NewGlobalRateLimiter creates a new global rate limiter.
func NewGlobalRateLimiter(rps float64, burst int) *GlobalRateLimiter {
	return &GlobalRateLimiter{
		cache: newLimiterCache[string](rps, burst),
	}
}

// Middleware returns HTTP middleware that enforces the per-IP rate limit,
// responding with 429 when exceeded.
func (rl *GlobalRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)
			if !rl.cache.get(ip).Allow() {
				slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
