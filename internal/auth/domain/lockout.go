package domain

import "time"

// LockoutRecord tracks consecutive password failures for one account. Created
// lazily on the first failure, reset on any successful authentication.
type LockoutRecord struct {
	AccountID      string
	FailedAttempts int
	LastFailureAt  time.Time
	LockExpiry     *time.Time // nil means not locked
}

// Locked reports whether the record holds an unexpired lock at time now.
func (r LockoutRecord) Locked(now time.Time) bool {
	return r.LockExpiry != nil && r.LockExpiry.After(now)
}

// LockoutOutcome is the result of recording a failed attempt.
type LockoutOutcome struct {
	LockedOut         bool
	RemainingAttempts int // valid when not locked out
	RemainingMinutes  int // valid when locked out, rounded up
}
