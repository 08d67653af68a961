/*
File: limiter.go
Version: 2.0.0
Description: Per-client token bucket limiting for the HTTP API.
             Requests slightly over the rate are paced (delayed) instead of rejected;
             clients far over the rate are dropped. Exempt networks bypass the limiter.
             Client state lives in a sharded map and idle entries are swept periodically.
*/

package main

import (
	"context"
	"fmt"
	"hash/maphash"
	"net"
	"sync"
	"time"

	"github.com/yl2chen/cidranger"
	"golang.org/x/time/rate"
)

// Actions returned by the limiter
type LimitAction int

const (
	ActionAllow LimitAction = iota
	ActionDelay
	ActionDrop
)

func (a LimitAction) String() string {
	switch a {
	case ActionAllow:
		return "ALLOW"
	case ActionDelay:
		return "DELAY"
	case ActionDrop:
		return "DROP"
	default:
		return "UNKNOWN"
	}
}

const (
	limitShardCount = 64
	// maxPacingDelay is the longest a request may be held back to conform to the rate.
	maxPacingDelay = 1 * time.Second
)

type clientState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterShard struct {
	sync.Mutex
	clients map[string]*clientState
}

type LimiterManager struct {
	shards  [limitShardCount]*limiterShard
	config  RateLimitConfig
	enabled bool
	seed    maphash.Seed
	exempt  cidranger.Ranger
}

func NewLimiter(cfg RateLimitConfig) *LimiterManager {
	lm := &LimiterManager{
		config:  cfg,
		enabled: cfg.Enabled,
		seed:    maphash.MakeSeed(),
		exempt:  cidranger.NewPCTrieRanger(),
	}
	for i := range lm.shards {
		lm.shards[i] = &limiterShard{clients: make(map[string]*clientState)}
	}
	for _, ipnet := range cfg.parsedExemptCIDRs {
		if err := lm.exempt.Insert(cidranger.NewBasicRangerEntry(ipnet)); err != nil {
			LogWarn("[LIMITER] Failed to add exempt network %s: %v", ipnet.String(), err)
		}
	}
	return lm
}

// StartCleanupRoutine removes idle client limiters until ctx is done.
func (lm *LimiterManager) StartCleanupRoutine(ctx context.Context) {
	if !lm.enabled {
		return
	}

	interval := lm.config.parsedCleanupInterval
	if interval == 0 {
		interval = 1 * time.Minute
	}

	LogInfo("[LIMITER] Starting cleanup routine (Interval: %v)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			LogInfo("[LIMITER] Stopping cleanup routine")
			return
		case <-ticker.C:
			lm.cleanup(time.Now())
		}
	}
}

func (lm *LimiterManager) cleanup(now time.Time) int {
	expiration := lm.config.parsedClientExpiration
	if expiration == 0 {
		expiration = 5 * time.Minute
	}
	removed := 0

	for _, shard := range lm.shards {
		shard.Lock()
		for ip, state := range shard.clients {
			if now.Sub(state.lastSeen) > expiration {
				delete(shard.clients, ip)
				removed++
			}
		}
		shard.Unlock()
	}

	if removed > 0 {
		LogDebug("[LIMITER] Cleaned up %d idle client limiters", removed)
	}
	return removed
}

func (lm *LimiterManager) getShard(key string) *limiterShard {
	return lm.shards[maphash.String(lm.seed, key)&(limitShardCount-1)]
}

func (lm *LimiterManager) isExempt(ip net.IP) bool {
	ok, err := lm.exempt.Contains(ip)
	return err == nil && ok
}

// Check decides what to do with a request from clientIP.
// Returns the action, how long to delay (ActionDelay only) and a reason for logging.
func (lm *LimiterManager) Check(clientIP net.IP) (LimitAction, time.Duration, string) {
	if !lm.enabled || clientIP == nil || lm.isExempt(clientIP) {
		return ActionAllow, 0, ""
	}

	ipStr := clientIP.String()
	shard := lm.getShard(ipStr)

	shard.Lock()
	state, exists := shard.clients[ipStr]
	if !exists {
		state = &clientState{
			limiter: rate.NewLimiter(rate.Limit(lm.config.ClientQPS), lm.config.ClientBurst),
		}
		shard.clients[ipStr] = state
	}
	state.lastSeen = time.Now()
	reservation := state.limiter.Reserve()
	shard.Unlock()

	if !reservation.OK() {
		return ActionDrop, 0, fmt.Sprintf("Client Rate Limit Exceeded (IP: %s, Burst: %d)", ipStr, lm.config.ClientBurst)
	}

	delay := reservation.Delay()
	if delay == 0 {
		return ActionAllow, 0, ""
	}
	if delay <= maxPacingDelay {
		return ActionDelay, delay, fmt.Sprintf("Client QPS Pacing (IP: %s, Delay: %v)", ipStr, delay)
	}

	reservation.Cancel()
	return ActionDrop, 0, fmt.Sprintf("Client QPS Exceeded (IP: %s, Required Delay: %v > Limit: %v)", ipStr, delay, maxPacingDelay)
}
