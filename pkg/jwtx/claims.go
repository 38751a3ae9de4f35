package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes. Services can override each of them from config.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// DefaultPendingTokenTTL bounds the window between a password check and
	// the second factor.
	DefaultPendingTokenTTL = 10 * time.Minute

	// DefaultResetTokenTTL bounds the window between a verified reset code
	// and the new password being submitted.
	DefaultResetTokenTTL = 10 * time.Minute
)

// Purpose scopes a token to the single step it was minted for. A token is
// only ever accepted by the step matching its purpose.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeMFAPending    Purpose = "mfa_pending"
	PurposePasswordReset Purpose = "password_reset"
)

// Authentication Methods Reference values carried in the "amr" claim.
const (
	AMRPassword = "pwd"
	AMROTP      = "otp"
	AMRMFA      = "mfa"
	AMRRefresh  = "refresh"
)

// Claims are the token claims shared by every token this service mints.
type Claims struct {
	jwt.RegisteredClaims

	// Purpose is always set; see the Purpose constants.
	Purpose Purpose `json:"purpose"`

	// Email and Role are only present on session tokens.
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`

	// Authentication Methods Reference ["pwd","otp","mfa"]
	// 		"pwd": Password-based Authentication
	//		"otp": One-time Password (email code or TOTP)
	//		"mfa": Multi-factor Auth was used
	AMR []string `json:"amr,omitempty"`

	// Binding ties a token to server-side state. When that state changes the
	// token stops validating, which makes it single use.
	Binding string `json:"bnd,omitempty"`
}

// NewSessionClaims builds claims for an access or refresh token.
func NewSessionClaims(
	purpose Purpose,
	subject, email, role string,
	amr []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	c := newClaims(purpose, subject, ttl, issuer, now)
	c.Email = email
	c.Role = role
	c.AMR = amr
	return c
}

// NewPurposeClaims builds minimally-correct claims for a single-step token
// such as mfa_pending or password_reset.
func NewPurposeClaims(purpose Purpose, subject string, ttl time.Duration, issuer string, now time.Time) Claims {
	return newClaims(purpose, subject, ttl, issuer, now)
}

func newClaims(purpose Purpose, subject string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Purpose: purpose,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two
// tokens minted in the same second for the same user still differ by it.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidatePurpose checks the token was minted for the expected step.
func (c *Claims) ValidatePurpose(expected Purpose) error {
	if c.Purpose != expected {
		return ErrPurpose
	}
	return nil
}

// HasAMR reports whether method is listed in the amr claim.
func (c *Claims) HasAMR(method string) bool {
	for _, m := range c.AMR {
		if m == method {
			return true
		}
	}
	return false
}
