package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	maxTrackedKeys = 4096
	idleAfter      = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per caller key. The number of tracked
// keys is capped; idle keys are pruned first when the cap is reached.
type KeyedLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[string]*limiterEntry
	now     func() time.Time
}

// NewKeyedLimiter allows perMinute requests per key with a burst of the same
// size. perMinute <= 0 disables limiting.
func NewKeyedLimiter(perMinute float64) *KeyedLimiter {
	burst := int(perMinute)
	if burst < 1 {
		burst = 1
	}
	return &KeyedLimiter{
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (k *KeyedLimiter) Allow(key string) bool {
	if k.limit <= 0 {
		return true
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if len(k.entries) >= maxTrackedKeys {
		for tracked, e := range k.entries {
			if now.Sub(e.lastSeen) >= idleAfter {
				delete(k.entries, tracked)
			}
		}
		for len(k.entries) >= maxTrackedKeys {
			for tracked := range k.entries {
				delete(k.entries, tracked)
				break
			}
		}
	}

	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// RateLimit rejects callers that exceed their bucket with 429. Callers are
// keyed by client IP.
func RateLimit(l *KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "Too many requests",
				},
			})
			return
		}
		c.Next()
	}
}
