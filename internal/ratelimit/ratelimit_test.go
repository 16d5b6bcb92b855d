package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowRequestUnderLimit(t *testing.T) {
	rl := NewRateLimiter(3, 100, true)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.AllowRequest(), "request %d should pass", i)
	}
	assert.False(t, rl.AllowRequest())
}

func TestAllowRequestHourLimit(t *testing.T) {
	rl := NewRateLimiter(100, 2, true)

	assert.True(t, rl.AllowRequest())
	assert.True(t, rl.AllowRequest())
	assert.False(t, rl.AllowRequest())
}

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	rl := NewRateLimiter(1, 1, false)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.AllowRequest())
	}
	assert.False(t, rl.GetStats().Enabled)
}

func TestGetStats(t *testing.T) {
	rl := NewRateLimiter(10, 100, true)

	rl.AllowRequest()
	rl.AllowRequest()

	stats := rl.GetStats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, 2, stats.RequestsLastMinute)
	assert.Equal(t, 2, stats.RequestsLastHour)
	assert.Equal(t, 8, stats.RemainingThisMinute)
	assert.Equal(t, 98, stats.RemainingThisHour)
}

func TestReset(t *testing.T) {
	rl := NewRateLimiter(2, 100, true)

	rl.AllowRequest()
	rl.AllowRequest()
	assert.False(t, rl.AllowRequest())

	rl.Reset()
	assert.True(t, rl.AllowRequest())
}
