package control

import (
	"sync"
	"time"
)

// RateLimiter implements per-source command rate limiting with a fixed window and a cooldown
type RateLimiter struct {
	mu      sync.Mutex
	sources map[string]*sourceLimit
	config  RateLimitConfig
	now     func() time.Time
}

type sourceLimit struct {
	count     int
	windowEnd time.Time
	lastCmd   time.Time
}

// RateLimitConfig configures rate limiting behavior
type RateLimitConfig struct {
	MaxPerWindow     int           // commands allowed per window
	WindowDuration   time.Duration // window size
	CooldownDuration time.Duration // minimum time between commands
}

// DefaultRateLimitConfig allows a fast player but not a flood
var DefaultRateLimitConfig = RateLimitConfig{
	MaxPerWindow:     20,
	WindowDuration:   time.Second,
	CooldownDuration: 10 * time.Millisecond,
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		sources: make(map[string]*sourceLimit),
		config:  cfg,
		now:     time.Now,
	}
}

// Allow checks if source can execute a command now
func (rl *RateLimiter) Allow(source string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	limit, exists := rl.sources[source]
	if !exists {
		rl.sources[source] = &sourceLimit{
			count:     1,
			windowEnd: now.Add(rl.config.WindowDuration),
			lastCmd:   now,
		}
		return true
	}

	if now.Sub(limit.lastCmd) < rl.config.CooldownDuration {
		return false
	}

	if now.After(limit.windowEnd) {
		limit.count = 1
		limit.windowEnd = now.Add(rl.config.WindowDuration)
		limit.lastCmd = now
		return true
	}

	if limit.count >= rl.config.MaxPerWindow {
		return false
	}

	limit.count++
	limit.lastCmd = now
	return true
}

// Forget drops the state for source, e.g. when a WebSocket client disconnects
func (rl *RateLimiter) Forget(source string) {
	rl.mu.Lock()
	delete(rl.sources, source)
	rl.mu.Unlock()
}

// Cleanup removes sources idle for longer than maxIdle
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	removed := 0
	for key, limit := range rl.sources {
		if limit.lastCmd.Before(cutoff) {
			delete(rl.sources, key)
			removed++
		}
	}
	return removed
}
