package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/limiter"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/cryptox"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

// PasswordResetService runs forgot-password: emailed code, then a reset
// token, then the new password.
type PasswordResetService struct {
	Store    store.Store
	Tokens   *TokenService
	Notifier Notifier
	Limiter  limiter.Limiter

	OTPTTL time.Duration
	Clock  func() time.Time
}

// ForgotPassword emails a reset code. Unknown addresses succeed silently so
// the endpoint can't be used to discover accounts. Unlike the login code,
// a delivery failure here is reported, as the user has no other way in.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("password reset requested for unknown email", slogx.Email(email))
			return nil
		}
		return err
	}

	code, err := issueOTP(ctx, s.Store.Users(), user, domain.OTPPurposeReset, s.OTPTTL, clockNow(s.Clock))
	if err != nil {
		return err
	}

	if err := s.Notifier.SendOTP(ctx, user.Email, code, domain.OTPPurposeReset); err != nil {
		l.Error("failed to deliver reset code", slog.String("user_id", user.ID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	l.Info("password reset code sent", slog.String("user_id", user.ID))
	return nil
}

// VerifyResetOTP trades a correct reset code for a short-lived reset token.
// Failures are reported as ErrResetVerificationFailed only.
func (s *PasswordResetService) VerifyResetOTP(ctx context.Context, email, code string) (string, error) {
	token, err := s.verifyResetOTP(ctx, domain.NormalizeEmail(email), code)
	if err != nil {
		slogx.FromContext(ctx).Warn("reset code verification failed", slogx.Email(email), slog.String("reason", err.Error()))
		if errors.Is(err, ErrTooManyAttempts) {
			return "", fmt.Errorf("%w: %w", ErrResetVerificationFailed, ErrTooManyAttempts)
		}
		return "", ErrResetVerificationFailed
	}
	return token, nil
}

func (s *PasswordResetService) verifyResetOTP(ctx context.Context, email, code string) (string, error) {
	guard := attempts{limiter: s.Limiter}
	key := limiter.ResetKey(email)
	if err := guard.check(ctx, key); err != nil {
		return "", err
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			guard.fail(ctx, key)
			return "", ErrUserNotFound
		}
		return "", err
	}

	if err := consumeOTP(ctx, s.Store.Users(), user, domain.OTPPurposeReset, code, clockNow(s.Clock)); err != nil {
		if countsAsAttempt(err) {
			guard.fail(ctx, key)
		}
		return "", err
	}
	guard.reset(ctx, key)

	return s.Tokens.MintReset(user)
}

// ResetPassword sets a new password using a token from VerifyResetOTP. The
// token only works while the password it was minted against is unchanged,
// so it can be used once. Existing refresh tokens are revoked.
func (s *PasswordResetService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.ParseReset(resetToken)
	if err != nil {
		l.Info("reset token rejected", slog.String("reason", err.Error()))
		return ErrInvalidToken
	}

	if err := cryptox.ValidatePasswordPolicy(newPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if !cryptox.FingerprintMatches(user.PasswordHash, claims.Binding) {
		l.Info("reset token rejected", slog.String("reason", "password already changed"))
		return ErrInvalidToken
	}

	// The swap only lands while the hash the token was bound to is still
	// stored, so a concurrent reset with the same token loses here.
	ok, err := s.Store.Users().ReplacePasswordHash(ctx, user.ID, user.PasswordHash, hash)
	if err != nil {
		return fmt.Errorf("replace password hash: %w", err)
	}
	if !ok {
		l.Info("reset token rejected", slog.String("reason", "password changed concurrently"))
		return ErrInvalidToken
	}

	l.Info("password reset completed", slog.String("user_id", claims.Subject))
	return nil
}
