package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/iannil/one-data-studio-sub007/internal/api/models"
)

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the rate limit in requests per second.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int

	// PerClient enables per-client rate limiting based on IP.
	PerClient bool

	// ClientTTL is how long to keep inactive client limiters.
	ClientTTL time.Duration
}

// DefaultRateLimitConfig returns a RateLimitConfig with sensible defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		PerClient:         true,
		ClientTTL:         time.Hour,
	}
}

// RateLimiter returns a middleware that limits request rate.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.PerClient {
		return perClientRateLimiter(cfg)
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			models.RespondWithError(c, models.NewRateLimitedError(c.Request.URL.Path))
			c.Abort()
			return
		}
		c.Next()
	}
}

// clientLimiter holds a rate limiter and its last access time.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func perClientRateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	ttl := cfg.ClientTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*clientLimiter)
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		cl, ok := limiters[ip]
		if !ok {
			// Opportunistic cleanup keeps the map bounded without a
			// background goroutine.
			for k, v := range limiters {
				if now.Sub(v.lastAccess) > ttl {
					delete(limiters, k)
				}
			}
			cl = &clientLimiter{
				limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
			}
			limiters[ip] = cl
		}
		cl.lastAccess = now
		mu.Unlock()

		if !cl.limiter.Allow() {
			models.RespondWithError(c, models.NewRateLimitedError(c.Request.URL.Path))
			c.Abort()
			return
		}
		c.Next()
	}
}
