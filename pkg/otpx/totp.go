// Package otpx wraps TOTP validation with the parameters this service
// provisions (SHA-1, 6 digits, 30 second period) and a fixed clock-skew
// tolerance of one period in either direction.
package otpx

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the TOTP time step in seconds.
	Period = 30
	// Digits is the code length provisioned to authenticator apps.
	Digits = otp.DigitsSix
	// Algorithm is the HMAC hash provisioned to authenticator apps.
	Algorithm = otp.AlgorithmSHA1
	// skew is the number of adjacent time steps accepted on either side.
	skew = 1
)

// VerifyCode reports whether code is valid for secret at the current time,
// tolerating up to one period of clock skew.
func VerifyCode(secret, code string) bool {
	return VerifyCodeAt(secret, code, time.Now())
}

// VerifyCodeAt is VerifyCode with an explicit verification time.
func VerifyCodeAt(secret, code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(Normalize(code), secret, at, totp.ValidateOpts{
		Period:    Period,
		Skew:      skew,
		Digits:    Digits,
		Algorithm: Algorithm,
	})
	if err != nil {
		return false
	}
	return ok
}

// Normalize strips everything but digits from a presented code. Authenticator
// apps and users commonly insert spaces or dashes when displaying or typing
// codes.
func Normalize(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
