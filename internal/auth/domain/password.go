package domain

import "time"

// PasswordHistoryEntry is one retained password hash. The newest entry is the
// account's current password; older entries are its predecessors, pruned to
// the configured history depth.
type PasswordHistoryEntry struct {
	ID           string
	AccountID    string
	PasswordHash string
	CreatedAt    time.Time
}

// PasswordViolation names one failed complexity rule. Callers receive the
// full list so forms can surface every problem at once.
type PasswordViolation string

const (
	ViolationTooShort    PasswordViolation = "too_short"
	ViolationNoUppercase PasswordViolation = "missing_uppercase"
	ViolationNoLowercase PasswordViolation = "missing_lowercase"
	ViolationNoDigit     PasswordViolation = "missing_digit"
	ViolationNoSpecial   PasswordViolation = "missing_special"
)
