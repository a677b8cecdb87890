package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultLimiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP. Buckets idle for
// longer than idleTTL are dropped, swept at most once per idleTTL.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

type RateLimiterOption func(*RateLimiter)

func WithIdleTTL(ttl time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		r.idleTTL = ttl
	}
}

func NewRateLimiter(requestsPerSecond float64, burst int, logger *zap.Logger, opts ...RateLimiterOption) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		idleTTL:  defaultLimiterIdleTTL,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastSweep = r.now()
	return r
}

func (r *RateLimiter) limiter(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= r.idleTTL {
		r.sweepLocked(now)
	}

	entry, ok := r.limiters[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (r *RateLimiter) sweepLocked(now time.Time) {
	before := len(r.limiters)
	for ip, entry := range r.limiters {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			delete(r.limiters, ip)
		}
	}
	r.lastSweep = now
	if evicted := before - len(r.limiters); evicted > 0 {
		r.logger.Debug("evicted idle rate limiters",
			zap.Int("evicted", evicted),
			zap.Int("tracked", len(r.limiters)))
	}
}

// tracked reports how many clients currently hold a bucket.
func (r *RateLimiter) tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// Middleware rejects requests over the per-IP budget with 429.
// A non-positive rate disables limiting.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.limit <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !r.limiter(ip).Allow() {
			r.logger.Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}
