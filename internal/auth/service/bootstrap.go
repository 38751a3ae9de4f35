package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/cryptox"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/idx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

var (
	ErrBootstrapAlready             = errors.New("system already bootstrapped")
	ErrBootstrapFailedToCreateAdmin = errors.New("failed to create admin user")
)

// BootstrapService seeds the first account. Provisioning further users is
// out of scope for this service.
type BootstrapService struct {
	Store store.Store
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// SeedAdmin creates the admin account when the store has no users. If no
// password was supplied one is generated and returned so the caller can
// show it once.
func (s *BootstrapService) SeedAdmin(ctx context.Context, req domain.BootstrapData) (userID, password string, err error) {
	l := slogx.FromContext(ctx)

	email := domain.NormalizeEmail(req.AdminEmail)
	if email == "" {
		return "", "", fmt.Errorf("%w: admin email is required", ErrInvalidRequest)
	}

	if bootstrapped, err := s.IsBootstrapped(ctx); err != nil {
		return "", "", err
	} else if bootstrapped {
		return "", "", ErrBootstrapAlready
	}

	password = req.AdminPassword
	if password == "" {
		if password, err = cryptox.GeneratePassword(); err != nil {
			return "", "", err
		}
	}
	if err := cryptox.ValidatePasswordPolicy(password); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}

	method := req.MFAMethod
	if method == "" {
		method = domain.MFAMethodEmail
	}

	passHash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return "", "", ErrBootstrapFailedToCreateAdmin
	}

	// The emptiness check and the insert share one transaction
	userID = idx.New().String()
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrBootstrapAlready
		}
		return tx.Users().CreateUser(ctx, domain.User{
			ID:           userID,
			Email:        email,
			PasswordHash: passHash,
			Role:         domain.RoleAdmin,
			MFAEnabled:   req.MFAEnabled,
			MFAMethod:    method,
		})
	})
	if err != nil {
		if errors.Is(err, ErrBootstrapAlready) || errors.Is(err, store.ErrAlreadyExists) {
			return "", "", ErrBootstrapAlready
		}
		l.Error("failed to create admin user", slog.String("admin_user_id", userID), slog.Any("error", err))
		return "", "", ErrBootstrapFailedToCreateAdmin
	}

	l.Info("seeded admin user", slog.String("admin_user_id", userID), slogx.Email(email))
	return userID, password, nil
}
