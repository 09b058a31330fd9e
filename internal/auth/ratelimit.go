// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package auth

import (
	"strings"
	"sync"
	"time"
)

// Rate limiting configuration.
const (
	// LockoutDuration is how long a name is locked after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of failures that triggers a lockout.
	LockoutThreshold = 7
)

// RateLimitResult is the outcome of a pre-login rate limit check.
type RateLimitResult struct {
	// Delay is the suggested wait before allowing another attempt.
	Delay time.Duration

	// IsLockedOut indicates the name is temporarily locked.
	IsLockedOut bool

	// LockoutRemaining is the time until the lockout expires.
	LockoutRemaining time.Duration
}

// LoginLimiter tracks consecutive failures per player name. Names are
// folded case-insensitively so "Sam" and "sam" share a budget.
type LoginLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	now     func() time.Time
}

type limiterEntry struct {
	failures    int
	lockedUntil time.Time
}

// NewLoginLimiter creates an empty LoginLimiter.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

// Check evaluates the current rate limit state for a name.
func (l *LoginLimiter) Check(name string) RateLimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[fold(name)]
	if !ok {
		return RateLimitResult{}
	}

	now := l.now()
	if e.lockedUntil.After(now) {
		return RateLimitResult{
			IsLockedOut:      true,
			LockoutRemaining: e.lockedUntil.Sub(now),
		}
	}

	// Progressive delay: 2^(failures-1) seconds, capped at 32s.
	var result RateLimitResult
	if e.failures > 0 && e.failures < LockoutThreshold {
		result.Delay = time.Duration(1<<(e.failures-1)) * time.Second
		if result.Delay > 32*time.Second {
			result.Delay = 32 * time.Second
		}
	}
	return result
}

// RecordFailure notes a failed attempt, locking the name out once the
// threshold is crossed.
func (l *LoginLimiter) RecordFailure(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := fold(name)
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{}
		l.entries[key] = e
	}
	e.failures++
	if e.failures >= LockoutThreshold {
		e.lockedUntil = l.now().Add(LockoutDuration)
	}
}

// RecordSuccess clears the failure budget for a name.
func (l *LoginLimiter) RecordSuccess(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, fold(name))
}

func fold(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
