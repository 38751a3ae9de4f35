// Package otpx generates one-time codes: random numeric codes delivered out
// of band (email) and RFC 6238 TOTP secrets for authenticator apps.
package otpx

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// DefaultCodeLength is the length of emailed codes and TOTP codes.
	DefaultCodeLength = 6

	// DefaultPeriod is the TOTP step size in seconds.
	DefaultPeriod uint = 30

	// DefaultSkew is how many steps either side of "now" are accepted.
	DefaultSkew uint = 1
)

var ErrInvalidLength = errors.New("otpx: invalid code length")

// Enrollment is a freshly generated TOTP secret ready to hand to the user.
type Enrollment struct {
	Secret  string // base32, no padding
	URL     string // otpauth:// provisioning URI, rendered as a QR code by clients
	Issuer  string
	Account string
}

// GenerateNumericCode returns length uniformly random decimal digits.
func GenerateNumericCode(length int) (string, error) {
	if length < 4 || length > 10 {
		return "", ErrInvalidLength
	}

	var b strings.Builder
	b.Grow(length)

	ten := big.NewInt(10)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("otpx: generate code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// GenerateTOTP creates a new SHA1 / 6 digit / 30s secret for account.
func GenerateTOTP(issuer, account string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      DefaultPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("otpx: generate totp key: %w", err)
	}

	return Enrollment{
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  issuer,
		Account: account,
	}, nil
}

// ValidateTOTP checks code against secret at the given instant, accepting
// codes up to skew steps in the past or future. Malformed secrets or codes
// simply fail validation.
func ValidateTOTP(code, secret string, at time.Time, skew uint) bool {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    DefaultPeriod,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// TOTPCodeAt computes the code for secret at the given instant. Used by
// tests and tooling to act as the authenticator app.
func TOTPCodeAt(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    DefaultPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// Equal compares two codes in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
