package domain

import "time"

// Built-in roles. Role semantics beyond the admin gate live outside this
// service.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      string // argon2id PHC encoded, opaque to callers
	Role              string
	TwoFactorEnabled  bool // account has a TwoFactorSecret
	TwoFactorVerified bool // the secret completed first verification
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
