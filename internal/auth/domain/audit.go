package domain

import "time"

// Audit actions recorded by this service.
const (
	AuditRegister          = "register"
	AuditLogin             = "login"
	AuditLoginTwoFactor    = "login_2fa"
	AuditLoginBackupCode   = "login_backup_code"
	AuditLockout           = "lockout"
	AuditPasswordChange    = "password_change"
	AuditTwoFactorSetup    = "2fa_setup"
	AuditTwoFactorVerify   = "2fa_verify"
	AuditTwoFactorDisable  = "2fa_disable"
	AuditTwoFactorReset    = "2fa_reset"
	AuditTwoFactorResetAll = "2fa_reset_all"
	AuditBackupCodeRegen   = "2fa_backup_codes_regenerated"
	AuditSettingsUpdate    = "settings_update"
)

// AuditLogEntry is an immutable record of a security-relevant action. ActorID
// is the account performing the action, which for administrative resets
// differs from the affected account named in Detail.
type AuditLogEntry struct {
	ID        string
	ActorID   string
	Action    string
	Detail    string
	CreatedAt time.Time
}
