package domain

// SecuritySettings is the single administrative policy record. It is loaded
// per request and passed explicitly to every policy function rather than read
// through a global.
type SecuritySettings struct {
	MinPasswordLength int
	RequireUppercase  bool
	RequireLowercase  bool
	RequireDigit      bool
	RequireSpecial    bool

	// PasswordExpiryDays forces a change after this many days. 0 disables
	// expiry.
	PasswordExpiryDays int

	// PasswordHistoryDepth is how many previous hashes a new password is
	// checked against. 0 disables reuse checking.
	PasswordHistoryDepth int

	// FailedLoginAttempts is the failure count that triggers a lockout.
	FailedLoginAttempts int

	// LockoutDurationMinutes is how long a triggered lockout lasts.
	LockoutDurationMinutes int

	// TwoFactorEnabled and TwoFactorActivated gate mandatory 2FA together:
	// both must be true before logins require a second factor. Enabled turns
	// the feature on for setup; Activated starts enforcing it.
	TwoFactorEnabled   bool
	TwoFactorActivated bool
}

// TwoFactorRequired reports whether logins must present a second factor.
func (s SecuritySettings) TwoFactorRequired() bool {
	return s.TwoFactorEnabled && s.TwoFactorActivated
}

// DefaultSecuritySettings are the values seeded on first boot.
func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		MinPasswordLength:      10,
		RequireUppercase:       true,
		RequireLowercase:       true,
		RequireDigit:           true,
		RequireSpecial:         false,
		PasswordExpiryDays:     0,
		PasswordHistoryDepth:   5,
		FailedLoginAttempts:    5,
		LockoutDurationMinutes: 30,
		TwoFactorEnabled:       false,
		TwoFactorActivated:     false,
	}
}
