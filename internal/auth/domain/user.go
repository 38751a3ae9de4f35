package domain

import (
	"strings"
	"time"
)

// Roles understood by the service. Anything else is stored verbatim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               string
	Email            string        // normalised, see NormalizeEmail
	PasswordHash     string        // argon2 encoded
	Role             string        // RoleUser or RoleAdmin
	RefreshTokenHash *string       // fingerprint of the only live refresh token (nullable)
	MFAEnabled       bool          // defaults to true for new users
	MFAMethod        MFAMethod     // second factor used when MFAEnabled
	TOTPSecret       *string       // TOTP secret (nullable, base32 encoded)
	OTP              *OTPChallenge // outstanding emailed code (nullable)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasTOTPSecret reports whether the user has completed TOTP enrollment.
func (u User) HasTOTPSecret() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}

// NormalizeEmail is the single place email case and whitespace policy lives.
// Lookups and inserts both go through it, so matching is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserPatch is a partial update. Nil fields are left untouched. Setting a
// pointer to the empty string clears a nullable column.
type UserPatch struct {
	PasswordHash     *string
	Role             *string
	RefreshTokenHash *string
	MFAEnabled       *bool
	MFAMethod        *MFAMethod
	TOTPSecret       *string

	// OTP replaces any outstanding code. ClearOTP removes it. Code, purpose
	// and expiry always change together.
	OTP      *OTPChallenge
	ClearOTP bool
}

// IsEmpty reports whether the patch would change nothing.
func (p UserPatch) IsEmpty() bool {
	return p.PasswordHash == nil &&
		p.Role == nil &&
		p.RefreshTokenHash == nil &&
		p.MFAEnabled == nil &&
		p.MFAMethod == nil &&
		p.TOTPSecret == nil &&
		p.OTP == nil &&
		!p.ClearOTP
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T { return &v }
