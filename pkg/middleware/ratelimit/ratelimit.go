// Package ratelimit applies a per-client token bucket.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nimburion/postsvc/pkg/apperror"
	"github.com/nimburion/postsvc/pkg/controller"
	"github.com/nimburion/postsvc/pkg/server/router"
	"golang.org/x/time/rate"
)

// RateLimiter decides per key whether a request may proceed.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(key string) bool
}

// TokenBucketLimiter keeps one token bucket per key.
type TokenBucketLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	lastGC   time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucketLimiter allows requestsPerSecond on average and bursts of burst.
// Buckets idle for ten minutes are dropped.
func NewTokenBucketLimiter(requestsPerSecond float64, burst int) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketLimiter{
		limiters: make(map[string]*entry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// Allow consumes one token from key's bucket.
func (l *TokenBucketLimiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	l.collect(now)
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// collect drops idle buckets at most once per idleTTL. Caller holds mu.
func (l *TokenBucketLimiter) collect(now time.Time) {
	if now.Sub(l.lastGC) < l.idleTTL {
		return
	}
	l.lastGC = now
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
}

// Config configures the middleware.
type Config struct {
	// KeyFunc defaults to the client IP.
	KeyFunc func(router.Context) string
	// RetryAfter is sent with 429 responses; defaults to one second.
	RetryAfter time.Duration
	// ExcludedPathPrefixes bypass the limiter, e.g. health probes.
	ExcludedPathPrefixes []string
}

// RateLimit answers 429 with Retry-After once a client exhausts its bucket.
func RateLimit(limiter RateLimiter, cfg Config) router.MiddlewareFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c router.Context) string { return ClientIP(c.Request()) }
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = time.Second
	}
	retryAfter := strconv.Itoa(int((cfg.RetryAfter + time.Second - 1) / time.Second))

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range cfg.ExcludedPathPrefixes {
				if prefix != "" && strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			if !limiter.Allow(cfg.KeyFunc(c)) {
				c.Response().Header().Set("Retry-After", retryAfter)
				return controller.Error(c, apperror.RateLimited())
			}
			return next(c)
		}
	}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
