package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

const (
	// limiterMaxIdle is how long an address may stay quiet before its
	// limiter entry is dropped.
	limiterMaxIdle = 3 * time.Minute
	// limiterPruneInterval is how often idle entries are swept.
	limiterPruneInterval = time.Minute
)

// clientLimiter pairs a token bucket with the last time its address
// was seen, so quiet addresses can be evicted.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool tracks one token bucket per client address.
type limiterPool struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func newLimiterPool(cfg RateLimitConfig) *limiterPool {
	return &limiterPool{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}
}

// get returns the bucket for ip, creating it on first sight and
// refreshing its idle clock.
func (p *limiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	cl, ok := p.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.clients[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

// prune drops entries idle longer than maxIdle and reports how many
// were removed.
func (p *limiterPool) prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for ip, cl := range p.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(p.clients, ip)
			removed++
		}
	}
	return removed
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// RateLimit creates a per-IP rate limiting middleware. Every forwarded
// request holds a correlation-table entry for up to the reply timeout,
// so one noisy address must not be able to fill the table for everyone
// else. Idle addresses are evicted in the background to keep the pool
// bounded.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	pool := newLimiterPool(cfg)

	go func() {
		ticker := time.NewTicker(limiterPruneInterval)
		defer ticker.Stop()
		for range ticker.C {
			pool.prune(limiterMaxIdle)
		}
	}()

	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
