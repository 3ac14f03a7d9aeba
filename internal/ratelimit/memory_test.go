package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ashita-ai/senate/internal/ratelimit"
)

func TestMemoryLimiter_AllowsUpToLimitThenRejects(t *testing.T) {
	m := ratelimit.NewMemory()
	rule := ratelimit.Rule{Prefix: "missions", Limit: 2, Window: time.Minute}

	first := m.Allow(context.Background(), rule, "agent-1")
	second := m.Allow(context.Background(), rule, "agent-1")
	third := m.Allow(context.Background(), rule, "agent-1")

	assert.True(t, first.Allowed)
	assert.True(t, second.Allowed)
	assert.False(t, third.Allowed, "a third request within the window must be rejected at limit=2")
}

func TestMemoryLimiter_KeysAreIsolatedPerCaller(t *testing.T) {
	m := ratelimit.NewMemory()
	rule := ratelimit.Rule{Prefix: "missions", Limit: 1, Window: time.Minute}

	m.Allow(context.Background(), rule, "agent-1")
	result := m.Allow(context.Background(), rule, "agent-2")

	assert.True(t, result.Allowed, "a different caller key must not share agent-1's budget")
}

func TestMemoryLimiter_WindowExpiryAllowsAgain(t *testing.T) {
	m := ratelimit.NewMemory()
	rule := ratelimit.Rule{Prefix: "missions", Limit: 1, Window: 10 * time.Millisecond}

	first := m.Allow(context.Background(), rule, "agent-1")
	time.Sleep(20 * time.Millisecond)
	second := m.Allow(context.Background(), rule, "agent-1")

	assert.True(t, first.Allowed)
	assert.True(t, second.Allowed, "once the window has elapsed the budget must reset")
}

func TestMemoryLimiter_ImplementsAllower(t *testing.T) {
	var _ ratelimit.Allower = ratelimit.NewMemory()
	var _ ratelimit.Allower = (*ratelimit.Limiter)(nil)
}
