package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/cryptox"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/otpx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

type MFAService struct {
	Store  store.Store
	Issuer string // Issuer name shown in authenticator apps

	// Secrets seals TOTP secrets before they are stored. Nil stores them as-is.
	Secrets *cryptox.SecretBox
}

// totpSecret returns the user's TOTP secret in the clear.
func (s *MFAService) totpSecret(user domain.User) (string, error) {
	if !user.HasTOTPSecret() {
		return "", ErrTOTPNotConfigured
	}
	if s == nil {
		return *user.TOTPSecret, nil
	}
	secret, err := s.Secrets.Open(*user.TOTPSecret)
	if err != nil {
		return "", fmt.Errorf("failed to open TOTP secret: %w", err)
	}
	return secret, nil
}

// EnrollTOTP generates a new TOTP secret for the user and stores it right
// away. Any previous secret stops working immediately, including in apps
// that already scanned it.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID, email string) (domain.TOTPEnrollment, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TOTPEnrollment{}, ErrUserNotFound
		}
		return domain.TOTPEnrollment{}, err
	}

	account := domain.NormalizeEmail(email)
	if account == "" {
		account = user.Email
	}

	key, err := otpx.GenerateTOTP(s.Issuer, account)
	if err != nil {
		return domain.TOTPEnrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	stored, err := s.Secrets.Seal(key.Secret)
	if err != nil {
		return domain.TOTPEnrollment{}, fmt.Errorf("failed to seal TOTP secret: %w", err)
	}

	if _, err := s.Store.Users().UpdateUser(ctx, user.ID, domain.UserPatch{TOTPSecret: &stored}); err != nil {
		return domain.TOTPEnrollment{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	slogx.FromContext(ctx).Info("totp secret enrolled",
		slog.String("user_id", user.ID),
		slog.Bool("replaced", user.HasTOTPSecret()),
	)

	return domain.TOTPEnrollment{
		Secret:  key.Secret,
		QRCode:  key.URL,
		Issuer:  key.Issuer,
		Account: key.Account,
	}, nil
}

// UpdateSettings switches MFA on or off and picks the method. Nil arguments
// leave the current value alone.
func (s *MFAService) UpdateSettings(ctx context.Context, userID string, enabled *bool, method *domain.MFAMethod) (domain.User, error) {
	patch := domain.UserPatch{MFAEnabled: enabled}
	if method != nil {
		m, err := domain.ParseMFAMethod(string(*method))
		if err != nil {
			return domain.User{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		patch.MFAMethod = &m
	}

	if patch.IsEmpty() {
		return domain.User{}, fmt.Errorf("%w: nothing to update", ErrInvalidRequest)
	}

	user, err := s.Store.Users().UpdateUser(ctx, userID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("mfa settings updated",
		slog.String("user_id", user.ID),
		slog.Bool("enabled", user.MFAEnabled),
		slog.String("method", string(user.MFAMethod)),
	)
	return user, nil
}
