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
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/otpx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

// issueOTP stores a fresh code for purpose, replacing whatever code the user
// had outstanding, and returns it for delivery.
func issueOTP(ctx context.Context, users store.Users, user domain.User, purpose domain.OTPPurpose, ttl time.Duration, now time.Time) (string, error) {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}

	code, err := otpx.GenerateNumericCode(otpx.DefaultCodeLength)
	if err != nil {
		return "", err
	}

	_, err = users.UpdateUser(ctx, user.ID, domain.UserPatch{
		OTP: &domain.OTPChallenge{Code: code, Purpose: purpose, ExpiresAt: now.Add(ttl)},
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// consumeOTP checks code against the user's outstanding code for purpose and
// clears it on success. Only one of several concurrent correct submissions
// wins; the others see ErrNoPendingOTP.
func consumeOTP(ctx context.Context, users store.Users, user domain.User, purpose domain.OTPPurpose, code string, now time.Time) error {
	if user.OTP == nil || user.OTP.Purpose != purpose {
		return ErrNoPendingOTP
	}
	if user.OTP.Expired(now) {
		return ErrOTPExpired
	}
	if !otpx.Equal(code, user.OTP.Code) {
		return ErrInvalidOTP
	}

	ok, err := users.ConsumeOTP(ctx, user.ID, purpose, code, now)
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if !ok {
		return ErrNoPendingOTP
	}
	return nil
}

// attempts wraps an optional limiter. A nil limiter never locks anyone out.
type attempts struct {
	limiter limiter.Limiter
}

// check fails closed: a limiter that cannot be reached rejects the attempt.
func (a attempts) check(ctx context.Context, key string) error {
	if a.limiter == nil {
		return nil
	}
	if err := a.limiter.Check(ctx, key); err != nil {
		if errors.Is(err, limiter.ErrLimited) {
			return ErrTooManyAttempts
		}
		return err
	}
	return nil
}

func (a attempts) fail(ctx context.Context, key string) {
	if a.limiter == nil {
		return
	}
	err := a.limiter.RecordFailure(ctx, key)
	if err != nil && !errors.Is(err, limiter.ErrLimited) {
		slogx.FromContext(ctx).Error("failed to record verification failure", slog.Any("error", err))
	}
}

func (a attempts) reset(ctx context.Context, key string) {
	if a.limiter == nil {
		return
	}
	if err := a.limiter.Reset(ctx, key); err != nil {
		slogx.FromContext(ctx).Error("failed to reset verification failures", slog.Any("error", err))
	}
}

// countsAsAttempt reports whether a failed check should use up an attempt.
// Only wrong codes do; missing or expired codes give nothing away.
func countsAsAttempt(err error) bool {
	return errors.Is(err, ErrInvalidOTP)
}
