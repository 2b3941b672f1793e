// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"
)

// Lockout defaults.
const (
	// DefaultLockoutThreshold is the number of consecutive failures that locks an account.
	DefaultLockoutThreshold = 7

	// DefaultLockoutDuration is how long a locked account stays locked.
	DefaultLockoutDuration = 15 * time.Minute
)

// LockoutPolicy decides when repeated login failures lock an account.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns the default policy.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

// IsLocked reports whether lockedUntil is still in the future at now.
func (p LockoutPolicy) IsLocked(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// Deadline is the lockout end for a lock applied at now.
func (p LockoutPolicy) Deadline(now time.Time) time.Time {
	return now.Add(p.Duration)
}

// Locks reports whether failures consecutive failures lock the account.
func (p LockoutPolicy) Locks(failures int) bool {
	return p.Threshold > 0 && failures >= p.Threshold
}

// RecordSuccess clears the failure counter and any lockout.
func (p LockoutPolicy) RecordSuccess(u *User, now time.Time) {
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = now
}
