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
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/jwtx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/otpx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

// AuthService drives sign-in: password check, second factor, session.
// It keeps no state between calls; everything lives in the store.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	MFA      *MFAService
	Notifier Notifier
	Limiter  limiter.Limiter

	OTPTTL   time.Duration
	TOTPSkew uint

	Clock func() time.Time
}

// ValidateCredentials returns the user owning email if password matches.
// Unknown email and wrong password both give ErrInvalidCredentials and cost
// the same argon2 work.
func (s *AuthService) ValidateCredentials(ctx context.Context, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.BurnPasswordCheck(password)
			l.Info("login failed", slogx.Email(email), slog.String("reason", "unknown_user"))
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		reason := "wrong_password"
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			reason = "unreadable_hash"
			l.Error("stored password hash could not be verified", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		l.Info("login failed", slogx.Email(email), slog.String("reason", reason))
		return domain.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Login checks the password and either issues a session (MFA off) or starts
// a second-factor challenge.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.LoginOutcome, error) {
	user, err := s.ValidateCredentials(ctx, email, password)
	if err != nil {
		return domain.LoginOutcome{}, err
	}
	return s.login(ctx, user)
}

func (s *AuthService) login(ctx context.Context, user domain.User) (domain.LoginOutcome, error) {
	l := slogx.FromContext(ctx).With(slog.String("user_id", user.ID))

	if !user.MFAEnabled {
		pair, err := s.Tokens.IssueSession(ctx, user, []string{jwtx.AMRPassword})
		if err != nil {
			return domain.LoginOutcome{}, err
		}
		return domain.LoginOutcome{Session: &pair}, nil
	}

	method := user.MFAMethod
	if method == "" {
		method = domain.MFAMethodEmail
	}

	pending, err := s.Tokens.MintPending(user)
	if err != nil {
		return domain.LoginOutcome{}, fmt.Errorf("mint pending token: %w", err)
	}

	out := domain.LoginOutcome{
		MFARequired:  true,
		MFAMethod:    method,
		PendingToken: pending,
	}

	switch method {
	case domain.MFAMethodTOTP:
		out.TOTPSetupRequired = !user.HasTOTPSecret()
	default:
		if err := s.sendLoginOTP(ctx, user); err != nil {
			return domain.LoginOutcome{}, err
		}
	}

	l.Info("mfa challenge started", slog.String("method", string(method)))
	return out, nil
}

// sendLoginOTP stores a new login code and hands it to the notifier. Delivery
// problems are logged only; the caller can ask for a resend.
func (s *AuthService) sendLoginOTP(ctx context.Context, user domain.User) error {
	code, err := issueOTP(ctx, s.Store.Users(), user, domain.OTPPurposeLogin, s.OTPTTL, clockNow(s.Clock))
	if err != nil {
		return err
	}
	if err := s.Notifier.SendOTP(ctx, user.Email, code, domain.OTPPurposeLogin); err != nil {
		slogx.FromContext(ctx).Error("failed to deliver login code",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	return nil
}

// VerifyMFA completes a challenge started by Login. Every failure is reported
// as ErrMFAVerificationFailed (plus ErrTooManyAttempts when locked out); the
// precise reason is only logged.
func (s *AuthService) VerifyMFA(ctx context.Context, pendingToken, code, methodHint string) (domain.TokenPair, error) {
	pair, err := s.verifyMFA(ctx, pendingToken, code, methodHint)
	if err != nil {
		slogx.FromContext(ctx).Warn("mfa verification failed", slog.String("reason", err.Error()))
		if errors.Is(err, ErrTooManyAttempts) {
			return domain.TokenPair{}, fmt.Errorf("%w: %w", ErrMFAVerificationFailed, ErrTooManyAttempts)
		}
		return domain.TokenPair{}, ErrMFAVerificationFailed
	}
	return pair, nil
}

func (s *AuthService) verifyMFA(ctx context.Context, pendingToken, code, methodHint string) (domain.TokenPair, error) {
	claims, err := s.Tokens.ParsePending(pendingToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrUserNotFound
		}
		return domain.TokenPair{}, err
	}

	guard := attempts{limiter: s.Limiter}
	key := limiter.MFAKey(user.ID)
	if err := guard.check(ctx, key); err != nil {
		return domain.TokenPair{}, err
	}

	method := user.MFAMethod
	if methodHint != "" {
		if method, err = domain.ParseMFAMethod(methodHint); err != nil {
			return domain.TokenPair{}, err
		}
	}
	if method == "" {
		method = domain.MFAMethodEmail
	}

	switch method {
	case domain.MFAMethodTOTP:
		err = s.checkTOTP(user, code)
	default:
		err = consumeOTP(ctx, s.Store.Users(), user, domain.OTPPurposeLogin, code, clockNow(s.Clock))
	}
	if err != nil {
		if countsAsAttempt(err) {
			guard.fail(ctx, key)
		}
		return domain.TokenPair{}, err
	}
	guard.reset(ctx, key)

	return s.Tokens.IssueSession(ctx, user, []string{jwtx.AMRPassword, jwtx.AMROTP, jwtx.AMRMFA})
}

func (s *AuthService) checkTOTP(user domain.User, code string) error {
	secret, err := s.MFA.totpSecret(user)
	if err != nil {
		return err
	}
	if !otpx.ValidateTOTP(code, secret, clockNow(s.Clock), s.TOTPSkew) {
		return ErrInvalidOTP
	}
	return nil
}

// ResendOTP issues a fresh login code for the user a pending token belongs
// to. The previous code stops working.
func (s *AuthService) ResendOTP(ctx context.Context, pendingToken string) error {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.ParsePending(pendingToken)
	if err != nil {
		l.Info("resend rejected", slog.String("reason", err.Error()))
		return ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if !user.MFAEnabled || (user.MFAMethod != "" && user.MFAMethod != domain.MFAMethodEmail) {
		return ErrOTPNotApplicable
	}

	return s.sendLoginOTP(ctx, user)
}

// SetupTOTP enrolls an authenticator app during sign-in. It is only allowed
// while the user has no secret yet; replacing an existing secret needs a
// full session (see MFAService.EnrollTOTP).
func (s *AuthService) SetupTOTP(ctx context.Context, pendingToken string) (domain.TOTPEnrollment, error) {
	claims, err := s.Tokens.ParsePending(pendingToken)
	if err != nil {
		slogx.FromContext(ctx).Info("totp setup rejected", slog.String("reason", err.Error()))
		return domain.TOTPEnrollment{}, ErrInvalidToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TOTPEnrollment{}, ErrInvalidToken
		}
		return domain.TOTPEnrollment{}, err
	}
	if user.HasTOTPSecret() {
		return domain.TOTPEnrollment{}, ErrTOTPAlreadyConfigured
	}

	return s.MFA.EnrollTOTP(ctx, user.ID, user.Email)
}
