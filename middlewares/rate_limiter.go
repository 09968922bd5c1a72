package middlewares

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client IP in fixed windows.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]int
	limit     int
	resetTime time.Duration
}

// NewRateLimiter starts the window reset loop; it stops when ctx is done.
func NewRateLimiter(ctx context.Context, limit int, resetTime time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors:  make(map[string]int),
		limit:     limit,
		resetTime: resetTime,
	}
	go rl.resetLoop(ctx)
	return rl
}

func (rl *RateLimiter) resetLoop(ctx context.Context) {
	ticker := time.NewTicker(rl.resetTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.reset()
		}
	}
}

func (rl *RateLimiter) reset() {
	rl.mu.Lock()
	rl.visitors = make(map[string]int)
	rl.mu.Unlock()
}

func (rl *RateLimiter) allow(visitor string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.visitors[visitor]++
	return rl.visitors[visitor] <= rl.limit
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			return
		}
		c.Next()
	}
}
