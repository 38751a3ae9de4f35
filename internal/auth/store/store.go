package store

import (
	"context"
	"errors"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrInvalidPatch  = errors.New("store: invalid patch")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx-scoped store can't start a second transaction.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store. Every mutating method is a single statement,
// so concurrent readers never see half of an update.
type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by normalised email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)

	// UpdateUser merges patch into the stored row, bumps updated_at and
	// returns the updated user.
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error)

	// ConsumeOTP clears the outstanding code if, and only if, it matches code
	// and purpose and has not expired at now. Of two concurrent callers with
	// the right code exactly one gets true.
	ConsumeOTP(ctx context.Context, id string, purpose domain.OTPPurpose, code string, now time.Time) (bool, error)

	// SwapRefreshTokenHash replaces the stored refresh fingerprint only when
	// it still equals expected. An empty next clears it.
	SwapRefreshTokenHash(ctx context.Context, id, expected, next string) (bool, error)

	// ReplacePasswordHash sets next only when the stored hash still equals
	// expected, clearing the refresh fingerprint and any outstanding code in
	// the same statement. Of two concurrent callers at most one gets true.
	ReplacePasswordHash(ctx context.Context, id, expected, next string) (bool, error)

	// DeleteExpiredOTPs clears codes that expired before now (housekeeping).
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// ValidatePatch rejects patches drivers cannot apply as one statement.
func ValidatePatch(p domain.UserPatch) error {
	if p.OTP != nil && p.ClearOTP {
		return ErrInvalidPatch
	}
	if p.OTP != nil && (p.OTP.Code == "" || p.OTP.Purpose == "" || p.OTP.ExpiresAt.IsZero()) {
		return ErrInvalidPatch
	}
	if p.PasswordHash != nil && *p.PasswordHash == "" {
		return ErrInvalidPatch
	}
	if p.MFAMethod != nil {
		if _, err := domain.ParseMFAMethod(string(*p.MFAMethod)); err != nil {
			return ErrInvalidPatch
		}
	}
	return nil
}
