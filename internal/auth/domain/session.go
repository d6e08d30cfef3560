package domain

import "time"

// Session is a bearer-token session minted at the HTTP edge after the login
// machine reaches its terminal state. Only the token fingerprint is stored.
type Session struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
