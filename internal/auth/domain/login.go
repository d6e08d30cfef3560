package domain

// CredentialStatus is the outcome of a username/password check.
type CredentialStatus int

const (
	CredentialInvalid CredentialStatus = iota
	CredentialLockedOut
	CredentialValid
)

// CredentialResult never distinguishes unknown-username from wrong-password.
type CredentialResult struct {
	Status            CredentialStatus
	Account           Account // valid only when Status == CredentialValid
	PasswordExpired   bool
	RemainingAttempts int // valid on Invalid, -1 when unknown (absent account)
	RemainingMinutes  int // valid on LockedOut
}

// LoginStatus is the state the login machine settled in for one call.
type LoginStatus int

const (
	LoginInvalid LoginStatus = iota
	LoginLockedOut
	LoginTwoFactorSetupRequired
	LoginTwoFactorPending
	LoginAuthenticated
)

// LoginResult is returned from both the password step and the second-factor
// step of the login machine.
type LoginResult struct {
	Status          LoginStatus
	Account         Account // valid only when authenticated
	PasswordExpired bool

	RemainingAttempts int    // Invalid: attempts left before lockout, -1 when unknown
	RemainingMinutes  int    // LockedOut: minutes until the lock expires
	ChallengeID       string // TwoFactorPending: token for the second-factor step

	// BackupCodesRemaining is set when a backup code completed the login.
	// -1 everywhere else.
	BackupCodesRemaining int
}
