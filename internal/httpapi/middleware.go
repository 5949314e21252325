package httpapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Logging writes one zerolog line per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		evt := log.Info()
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			evt = log.Error()
		case status >= http.StatusBadRequest:
			evt = log.Warn()
		}

		evt.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_id", identityFrom(c).UserID.String()).
			Msg("HTTP request")
	}
}

// Recovery turns a handler panic into a 500 response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic in handler")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

// RateLimiter is a fixed-window request limiter backed by Redis.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a new RateLimiter.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// LimitPerUser allows limit requests per authenticated user per window on
// the routes it guards. Redis errors let the request through.
func (rl *RateLimiter) LimitPerUser(name string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", name, identityFrom(c).UserID)

		count, err := rl.hit(c, key, window)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if count > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(rl.retryAfter(c, key, window)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// hit counts one request in the window. The counter and its TTL are written
// in one transaction, and EXPIRE NX also repairs a counter left without one.
func (rl *RateLimiter) hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "rate limit counter")
	}
	return incr.Val(), nil
}

// retryAfter returns whole seconds until the window resets, never less
// than one.
func (rl *RateLimiter) retryAfter(ctx context.Context, key string, window time.Duration) int {
	ttl, err := rl.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	secs := int(math.Ceil(ttl.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
