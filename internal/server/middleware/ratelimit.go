package middleware

import (
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a sliding-window per-IP limiter. Bookkeeping on the
// hot path is O(window size per IP); stale IPs are swept
// opportunistically on roughly one percent of checks.
type RateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter granting max requests per window
// per remote address.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		max:    max,
		window: window,
		hits:   map[string][]time.Time{},
		now:    time.Now,
	}
}

// Check records one request for ip. It returns whether the request is
// allowed, how many remain in the window, and — when denied — how long
// until the oldest hit leaves the window.
func (r *RateLimiter) Check(ip string) (allowed bool, remaining int, retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	recent := r.hits[ip][:0]
	for _, at := range r.hits[ip] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}

	if len(recent) >= r.max {
		r.hits[ip] = recent
		retryAfter = recent[0].Sub(cutoff)
		return false, 0, retryAfter
	}

	recent = append(recent, now)
	r.hits[ip] = recent

	if rand.Intn(100) == 0 {
		r.sweepLocked(cutoff)
	}
	return true, r.max - len(recent), 0
}

// sweepLocked drops IPs whose entire window has expired.
func (r *RateLimiter) sweepLocked(cutoff time.Time) {
	for ip, times := range r.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(r.hits, ip)
		}
	}
}

// RateLimit applies the limiter per remote address. Denied requests
// get 429 with a retryAfterMs body; every response carries
// X-RateLimit-Remaining.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			ip = c.Request.RemoteAddr
		}

		allowed, remaining, retryAfter := limiter.Check(ip)
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":        "rate limit exceeded",
				"retryAfterMs": retryAfter.Milliseconds(),
			})
			return
		}
		c.Next()
	}
}
