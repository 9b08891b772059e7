package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client. A bucket holds limit tokens
// and refills completely over one window. Buckets idle for two windows are
// dropped on a later call.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(float64(limit) / window.Seconds()),
		burst:   limit,
		idle:    2 * window,
		now:     time.Now,
	}
}

// Allow takes a token from key's bucket and reports how many are left
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	return allowed, int(math.Floor(b.limiter.TokensAt(now)))
}

// RetryAfter is how long a drained bucket needs to earn one token
func (rl *RateLimiter) RetryAfter() time.Duration {
	return time.Duration(float64(time.Second) / float64(rl.rate))
}

func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idle {
		return
	}
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idle {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

// RateLimit limits authenticated buyers per account and guests per client IP.
// Mount it after authentication so the buyer is known.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(limiter.RetryAfter().Seconds())))
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if buyerID := GetJWTBuyerID(c); buyerID != "" {
			key = "buyer:" + buyerID
		}

		allowed, remaining := limiter.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", retryAfter)
			abort(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "Too many requests, try again later")
			return
		}
		c.Next()
	}
}
