package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type rateLimiter struct {
	requests map[string]*clientRequest
	mu       sync.RWMutex
	limit    int
	window   time.Duration
}

type clientRequest struct {
	count     int
	resetTime time.Time
}

var limiter *rateLimiter

func init() {
	limiter = &rateLimiter{
		requests: make(map[string]*clientRequest),
		limit:    100,
		window:   time.Minute,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.cleanup()
		}
	}()
}

// allow records one request for ip and reports whether it is within the
// window's limit; retryAfter is only meaningful when allowed is false.
func (rl *rateLimiter) allow(ip string) (allowed bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.requests[ip]

	if !exists || now.After(client.resetTime) {
		rl.requests[ip] = &clientRequest{
			count:     1,
			resetTime: now.Add(rl.window),
		}
		return true, 0
	}

	if client.count >= rl.limit {
		return false, client.resetTime.Sub(now)
	}

	client.count++
	return true, 0
}

func RateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := limiter.allow(c.ClientIP())
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			return
		}
		c.Next()
	}
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, client := range rl.requests {
		if now.After(client.resetTime) {
			delete(rl.requests, ip)
		}
	}
}
