// Package limiter counts failed verification attempts (MFA codes, reset
// codes) per subject and locks the subject out for a window once the count
// reaches the configured maximum.
package limiter

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

var (
	ErrLimited     = errors.New("limiter: too many failed attempts")
	ErrUnavailable = errors.New("limiter: backend unavailable")
)

// Limiter tracks failures for a key such as "mfa:<userID>".
type Limiter interface {
	// Check returns ErrLimited while the key is locked out.
	Check(ctx context.Context, key string) error

	// RecordFailure counts one failure and returns ErrLimited once the
	// maximum has been reached.
	RecordFailure(ctx context.Context, key string) error

	// Reset forgets all failures for key, typically after a success.
	Reset(ctx context.Context, key string) error
}

// Config holds thresholds. Zero values fall back to the defaults.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}

// MFAKey scopes failures to a user's second-factor checks.
func MFAKey(userID string) string { return "mfa:" + userID }

// ResetKey scopes failures to password-reset code checks for an email.
func ResetKey(email string) string { return "reset:" + email }
