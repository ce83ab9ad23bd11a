package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"health-record-portal/internal/platform/httpx"
	"health-record-portal/internal/platform/logger"
	"health-record-portal/internal/platform/metrics"
)

type RateLimitConfig struct {
	// RPS <= 0 disables limiting.
	RPS   float64
	Burst int

	// Idle limiters are dropped after twice this interval.
	CleanupInterval time.Duration
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per caller: the user id once
// authenticated, the client IP otherwise.
type RateLimiter struct {
	cfg     RateLimitConfig
	log     logger.Logger
	metrics metrics.Recorder
	now     func() time.Time

	mu          sync.Mutex
	limiters    map[string]*clientLimiter
	lastCleanup time.Time
}

func NewRateLimiter(cfg RateLimitConfig, log logger.Logger, rec metrics.Recorder) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = int(math.Max(1, math.Ceil(cfg.RPS)))
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	return &RateLimiter{
		cfg:         cfg,
		log:         log,
		metrics:     rec,
		now:         time.Now,
		limiters:    make(map[string]*clientLimiter),
		lastCleanup: time.Now(),
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.cfg.RPS <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.limiterFor(key).Allow() {
			rl.metrics.RecordRateLimited()
			rl.log.Warn("rate limit exceeded", map[string]any{"client": key, "path": r.URL.Path})

			retry := int(math.Ceil(1.0 / rl.cfg.RPS))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			httpx.WriteJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Size reports how many callers currently hold a limiter.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) >= rl.cfg.CleanupInterval {
		rl.sweep(now)
	}

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst)}
		rl.limiters[key] = cl
	}
	cl.lastAccess = now
	return cl.limiter
}

// sweep runs with mu held.
func (rl *RateLimiter) sweep(now time.Time) {
	ttl := 2 * rl.cfg.CleanupInterval
	for k, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.limiters, k)
		}
	}
	rl.lastCleanup = now
}

func clientKey(r *http.Request) string {
	if c, ok := GetClaims(r.Context()); ok && strings.TrimSpace(c.UserID) != "" {
		return "user:" + c.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
