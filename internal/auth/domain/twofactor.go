package domain

import "time"

// TwoFactorSecret is the per-account TOTP shared secret. At most one exists
// per account; starting setup replaces any prior secret.
type TwoFactorSecret struct {
	AccountID string
	Secret    string // base32 encoded
	Verified  bool   // false while setup is in progress
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TwoFactorSetup is returned from setup initiation. The URI is handed to
// external QR rendering as-is.
type TwoFactorSetup struct {
	Secret          string
	ProvisioningURI string // otpauth://totp/...
}

// TwoFactorChallenge is a pending second-factor prompt created after a
// successful password check. It expires on its own and is deleted once the
// attempt cap is reached or the login completes.
type TwoFactorChallenge struct {
	ID              string // opaque challenge token handed to the caller
	AccountID       string
	PasswordExpired bool
	Attempts        int
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// MaxChallengeAttempts caps failed code submissions per challenge. The cap is
// challenge-scoped; it never feeds the account lockout counter.
const MaxChallengeAttempts = 5

// ChallengeTTL is how long a caller has to complete a pending challenge.
const ChallengeTTL = 5 * time.Minute

// BackupCodeCount is the size of every issued backup-code set.
const BackupCodeCount = 8
