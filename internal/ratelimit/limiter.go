// Package ratelimit provides per-key token bucket rate limiting for the
// simulator's MCP tools and HTTP routes.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrLimited is wrapped by every rate limit error.
var ErrLimited = errors.New("rate limit exceeded")

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute creates a limiter allowing n requests per minute with the given burst.
func PerMinute(n float64, burst int) *Limiter {
	return NewLimiter(n/60.0, burst)
}

// refill tops up the bucket for key and returns it. Callers hold l.mu.
func (l *Limiter) refill(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
		return b
	}
	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.lastCheck = now
	}
	return b
}

// Allow checks if a request for the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key, l.nowFunc())
	if b.tokens < 1.0 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter reports how long key must wait for its next token. Zero means
// a request would be allowed now; a zero rate never refills and returns -1.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key, l.nowFunc())
	if b.tokens >= 1.0 {
		return 0
	}
	if l.rate <= 0 {
		return -1
	}
	return time.Duration((1.0 - b.tokens) / l.rate * float64(time.Second))
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters.
// Read-only tools get generous limits; tools that call the content
// generator are tighter.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"sim_new_game":  PerMinute(10, 3),
		"sim_state":     PerMinute(120, 20),
		"sim_decisions": PerMinute(20, 5),
		"sim_decide":    PerMinute(60, 10),
		"sim_advance":   PerMinute(60, 10),
		"sim_launch":    PerMinute(5, 2),
		"sim_end":       PerMinute(5, 2),
		"sim_scenarios": PerMinute(60, 10),
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error wrapping ErrLimited if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrLimited, toolName)
	}

	return nil
}
