package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a caller's bucket survives without traffic.
const limiterIdleTTL = 10 * time.Minute

// RateLimit applies a token bucket per caller: the API key stored by
// APIKeyAuth, or the client IP when the API is open. It protects this service
// only; upstream search providers enforce their own limits.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst, limiterIdleTTL, time.Now)

	return func(c *gin.Context) {
		caller := "ip:" + c.ClientIP()
		if key := c.GetString(ContextKeyAPIKey); key != "" {
			caller = "key:" + key
		}

		if !store.get(caller).Allow() {
			if rps > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(1/rps))))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore hands out one limiter per caller and drops callers idle for
// longer than ttl. Sweeps run at most once per ttl, on access.
type limiterStore struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]*limiterEntry
}

func newLimiterStore(rps float64, burst int, ttl time.Duration, now func() time.Time) *limiterStore {
	return &limiterStore{
		rps:       rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		now:       now,
		lastSweep: now(),
		entries:   make(map[string]*limiterEntry),
	}
}

func (s *limiterStore) get(caller string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.ttl {
		s.sweep(now)
	}

	e, ok := s.entries[caller]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.entries[caller] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweep must be called with mu held.
func (s *limiterStore) sweep(now time.Time) {
	for caller, e := range s.entries {
		if now.Sub(e.lastSeen) >= s.ttl {
			delete(s.entries, caller)
		}
	}
	s.lastSweep = now
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
