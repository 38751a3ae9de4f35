package domain

import (
	"errors"
	"strings"
	"time"
)

// MFAMethod is the second factor a user signs in with.
type MFAMethod string

const (
	MFAMethodEmail MFAMethod = "email"
	MFAMethodTOTP  MFAMethod = "totp"
)

var ErrUnknownMFAMethod = errors.New("unknown mfa method")

// ParseMFAMethod accepts "email" or "totp" in any case.
func ParseMFAMethod(s string) (MFAMethod, error) {
	switch MFAMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MFAMethodEmail:
		return MFAMethodEmail, nil
	case MFAMethodTOTP:
		return MFAMethodTOTP, nil
	default:
		return "", ErrUnknownMFAMethod
	}
}

// OTPPurpose scopes an emailed code to the flow that issued it.
type OTPPurpose string

const (
	OTPPurposeLogin OTPPurpose = "login"
	OTPPurposeReset OTPPurpose = "reset"
)

// OTPChallenge is the single outstanding emailed code for a user.
type OTPChallenge struct {
	Code      string
	Purpose   OTPPurpose
	ExpiresAt time.Time
}

// Expired reports whether the code can no longer be used at now.
func (c OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// TOTPEnrollment is handed to the user once, at enrollment.
type TOTPEnrollment struct {
	Secret  string // Base32 encoded secret for TOTP
	QRCode  string // otpauth:// URL for QR code generation
	Issuer  string // Issuer name (e.g., service name)
	Account string // Account name (the user's email)
}

// LoginOutcome is the result of a successful password check. Exactly one of
// Session or PendingToken is set.
type LoginOutcome struct {
	MFARequired       bool
	MFAMethod         MFAMethod
	PendingToken      string
	TOTPSetupRequired bool
	Session           *TokenPair
}
