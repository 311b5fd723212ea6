package auth

import (
	"time"
)

// LockoutState is the derived view over a user's failed-attempt counter
// and lock expiration, recomputed on each login attempt.
type LockoutState int

const (
	Unlocked LockoutState = iota
	Locked
)

func (s LockoutState) String() string {
	if s == Locked {
		return "locked"
	}
	return "unlocked"
}

// LockoutPolicy holds the thresholds for the account-lockout state
// machine. Constructed once from configuration and treated as
// immutable.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

// DefaultLockoutPolicy returns the standard policy: five failed
// attempts lock the account for fifteen minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts: 5,
		Duration:    15 * time.Minute,
	}
}

// State evaluates the lockout state at the given instant. A lock whose
// expiration has passed counts as Unlocked.
func (p LockoutPolicy) State(lockedUntil *time.Time, now time.Time) LockoutState {
	if lockedUntil != nil && lockedUntil.After(now) {
		return Locked
	}
	return Unlocked
}

// RecordFailure applies the failed-login transition: the counter is
// incremented, and once it reaches MaxAttempts a lock expiration is
// set. Callers must only invoke this when State reports Unlocked; an
// attempt made while Locked is rejected without mutating counters.
func (p LockoutPolicy) RecordFailure(failedAttempts int, now time.Time) (attempts int, lockedUntil *time.Time) {
	attempts = failedAttempts + 1
	if attempts >= p.MaxAttempts {
		t := now.Add(p.Duration)
		lockedUntil = &t
	}
	return attempts, lockedUntil
}

// RecordSuccess applies the successful-login transition: the counter
// resets and any lock clears, unconditionally. A still-active lock can
// never reach this transition because the authenticator checks lock
// state before verifying the password.
func (p LockoutPolicy) RecordSuccess() (attempts int, lockedUntil *time.Time) {
	return 0, nil
}
