package main

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRateLimitConfig(t *testing.T, qps, burst int, exempt ...string) RateLimitConfig {
	t.Helper()
	cfg := Config{RateLimit: RateLimitConfig{
		Enabled:     true,
		ClientQPS:   qps,
		ClientBurst: burst,
		ExemptCIDRs: exempt,
	}}
	require.NoError(t, cfg.applyDefaults())
	return cfg.RateLimit
}

func TestLimiter_Disabled(t *testing.T) {
	cfg := testRateLimitConfig(t, 1, 1)
	cfg.Enabled = false
	lm := NewLimiter(cfg)

	for i := 0; i < 10; i++ {
		action, _, _ := lm.Check(net.ParseIP("10.0.0.1"))
		assert.Equal(t, ActionAllow, action)
	}
}

func TestLimiter_BurstThenPace(t *testing.T) {
	lm := NewLimiter(testRateLimitConfig(t, 10, 2))
	ip := net.ParseIP("198.51.100.7")

	for i := 0; i < 2; i++ {
		action, delay, _ := lm.Check(ip)
		assert.Equal(t, ActionAllow, action)
		assert.Zero(t, delay)
	}

	action, delay, reason := lm.Check(ip)
	assert.Equal(t, ActionDelay, action)
	assert.Greater(t, delay, time.Duration(0))
	assert.LessOrEqual(t, delay, maxPacingDelay)
	assert.Contains(t, reason, "Pacing")

	other, _, _ := lm.Check(net.ParseIP("198.51.100.8"))
	assert.Equal(t, ActionAllow, other, "clients are limited independently")
}

func TestLimiter_DropWhenFarOverRate(t *testing.T) {
	lm := NewLimiter(testRateLimitConfig(t, 1, 1))
	ip := net.ParseIP("203.0.113.9")

	action, _, _ := lm.Check(ip)
	assert.Equal(t, ActionAllow, action)

	// With 1 QPS the next slot is about a second out and queued reservations push it further.
	var last LimitAction
	for i := 0; i < 3; i++ {
		last, _, _ = lm.Check(ip)
	}
	assert.Equal(t, ActionDrop, last)
}

func TestLimiter_Exempt(t *testing.T) {
	lm := NewLimiter(testRateLimitConfig(t, 1, 1, "127.0.0.0/8", "::1", "192.0.2.5"))

	for _, addr := range []string{"127.0.0.1", "127.8.8.8", "::1", "192.0.2.5"} {
		ip := net.ParseIP(addr)
		for i := 0; i < 5; i++ {
			action, _, _ := lm.Check(ip)
			assert.Equal(t, ActionAllow, action, addr)
		}
	}

	lm.Check(net.ParseIP("192.0.2.6"))
	action, _, _ := lm.Check(net.ParseIP("192.0.2.6"))
	assert.NotEqual(t, ActionAllow, action)
}

func TestLimiter_NilIP(t *testing.T) {
	lm := NewLimiter(testRateLimitConfig(t, 1, 1))
	action, _, _ := lm.Check(nil)
	assert.Equal(t, ActionAllow, action)
}

func TestLimiter_Cleanup(t *testing.T) {
	lm := NewLimiter(testRateLimitConfig(t, 10, 10))
	lm.Check(net.ParseIP("10.1.1.1"))
	lm.Check(net.ParseIP("10.1.1.2"))

	assert.Equal(t, 0, lm.cleanup(time.Now()))
	assert.Equal(t, 2, lm.cleanup(time.Now().Add(10*time.Minute)))
	assert.Equal(t, 0, lm.cleanup(time.Now().Add(10*time.Minute)))
}

func TestLimitAction_String(t *testing.T) {
	assert.Equal(t, "ALLOW", ActionAllow.String())
	assert.Equal(t, "DELAY", ActionDelay.String())
	assert.Equal(t, "DROP", ActionDrop.String())
	assert.Equal(t, "UNKNOWN", LimitAction(9).String())
}
