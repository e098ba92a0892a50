package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc returns the key requests are counted under (defaults to UserKey)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
}

// rateLimitEntry tracks request count and window expiration
type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// RateLimiter is a fixed window limiter for one group of routes
type RateLimiter struct {
	config RateLimitConfig
	store  map[string]*rateLimitEntry
	mu     sync.Mutex
	now    func() time.Time
}

// UserKey counts requests per acting user, falling back to the client IP
func UserKey(c echo.Context) string {
	if user := GetCurrentUser(c); user != nil {
		return "user:" + user.ID
	}
	if id := c.Request().Header.Get(UserHeader); id != "" {
		return "user:" + id
	}
	return "ip:" + c.RealIP()
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = UserKey
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}

	return &RateLimiter{
		config: config,
		store:  make(map[string]*rateLimitEntry),
		now:    time.Now,
	}
}

// Allow records one request for key and reports whether it is within the limit
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.store[key]
	if !exists || now.After(entry.expiresAt) {
		rl.store[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(rl.config.Window)}
		return true
	}
	if entry.count >= rl.config.Requests {
		return false
	}
	entry.count++
	return true
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(rl.config.KeyFunc(c)) {
				c.Response().Header().Set("Retry-After", retryAfter(rl.config.Window))
				return jsonError(c, http.StatusTooManyRequests, rl.config.Message)
			}
			return next(c)
		}
	}
}

// Cleanup removes expired entries. Run it periodically from the owner.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, entry := range rl.store {
		if now.After(entry.expiresAt) {
			delete(rl.store, key)
		}
	}
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.store)
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// UploadRateLimitConfig limits attachment uploads to 10 per minute per user
var UploadRateLimitConfig = RateLimitConfig{
	Requests: 10,
	Window:   1 * time.Minute,
	Message:  "Too many uploads. Please wait a minute before trying again.",
}

// APIRateLimitConfig limits general API requests to 120 per minute per user
var APIRateLimitConfig = RateLimitConfig{
	Requests: 120,
	Window:   1 * time.Minute,
	Message:  "Rate limit exceeded. Please slow down your requests.",
}
