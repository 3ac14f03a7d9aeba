package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Allower is the capability rateLimitMiddleware depends on: anything that
// can answer "is this key within rule's window" for a request. Limiter
// (Redis-backed) and MemoryLimiter both implement it, so the HTTP layer
// never has to know which backend is behind it.
type Allower interface {
	Allow(ctx context.Context, rule Rule, key string) Result
}

// MemoryLimiter is the in-process sliding-window fallback used when no
// REDIS_URL is configured, so the gateway stays self-contained for local
// and development use. It holds one timestamp slice per (prefix, key) pair
// and is safe for concurrent use, but shares no state across processes —
// unlike Limiter, it does not serialize rate limits across replicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewMemory constructs a MemoryLimiter with empty state.
func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string][]time.Time)}
}

// Allow implements the same sliding-window semantics as Limiter.Allow:
// entries older than rule.Window are dropped, and the request is allowed
// only if fewer than rule.Limit entries remain in the window.
func (m *MemoryLimiter) Allow(_ context.Context, rule Rule, key string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rule.Window)
	mapKey := rule.Prefix + ":" + key

	kept := m.windows[mapKey][:0]
	for _, t := range m.windows[mapKey] {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rule.Limit {
		resetAt := kept[0].Add(rule.Window)
		m.windows[mapKey] = kept
		return Result{Allowed: false, Limit: rule.Limit, Remaining: 0, ResetAt: resetAt}
	}

	kept = append(kept, now)
	m.windows[mapKey] = kept

	return Result{
		Allowed:   true,
		Limit:     rule.Limit,
		Remaining: rule.Limit - len(kept),
		ResetAt:   now.Add(rule.Window),
	}
}

// Close is a no-op; MemoryLimiter owns no external resource.
func (m *MemoryLimiter) Close() error { return nil }
