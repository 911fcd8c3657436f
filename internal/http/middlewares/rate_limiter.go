package middlewares

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key in process memory. A key may
// burst up to limit requests and then refills at limit per window.
type RateLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	idleTTL time.Duration
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Minute
	}

	return &RateLimiter{
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		idleTTL: window,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

// RateLimiterMiddleware enforces the limit for a derived key.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		now := rl.now()

		rl.mu.Lock()
		b, ok := rl.clients[key]
		if !ok {
			rl.sweepLocked(now)
			b = &clientBucket{limiter: rate.NewLimiter(rl.every, rl.burst)}
			rl.clients[key] = b
		}
		b.lastSeen = now
		res := b.limiter.ReserveN(now, 1)
		delay := res.DelayFrom(now)
		if delay > 0 {
			res.CancelAt(now)
		}
		rl.mu.Unlock()

		if delay > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			abortWithError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

// sweepLocked drops idle buckets once the map grows, so one-off clients
// do not accumulate forever.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if len(rl.clients) < 1024 {
		return
	}
	for k, b := range rl.clients {
		if now.Sub(b.lastSeen) > rl.idleTTL {
			delete(rl.clients, k)
		}
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
