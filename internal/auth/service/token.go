package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/cryptox"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/jwtx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

const tokenTypeBearer = "Bearer"

// TokenService mints and checks every token the service hands out. Access,
// pending and reset tokens are signed with AccessKey and told apart by their
// purpose claim. Refresh tokens are signed with RefreshKey only.
type TokenService struct {
	Store      store.Store
	AccessKey  jwtx.SignVerifier
	RefreshKey jwtx.SignVerifier
	Issuer     string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	PendingTTL time.Duration
	ResetTTL   time.Duration

	Clock func() time.Time
}

// IssueSession is the only way a verified identity becomes a session. It
// always replaces the stored refresh fingerprint with the new token's.
func (s *TokenService) IssueSession(ctx context.Context, user domain.User, amr []string) (domain.TokenPair, error) {
	pair, fingerprint, err := s.mintSession(user, amr)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if _, err := s.Store.Users().UpdateUser(ctx, user.ID, domain.UserPatch{
		RefreshTokenHash: &fingerprint,
	}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrUserNotFound
		}
		return domain.TokenPair{}, fmt.Errorf("store refresh fingerprint: %w", err)
	}

	slogx.FromContext(ctx).Info("session issued",
		slog.String("user_id", user.ID),
		slog.Any("amr", amr),
	)
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// be the most recently issued one; presenting an older one revokes the
// session, since it means the token was copied.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := jwtx.PurposeVerifier{Verifier: s.RefreshKey, Purpose: jwtx.PurposeRefresh}.Verify(refreshToken)
	if err != nil {
		l.Info("refresh token rejected", slog.String("reason", err.Error()))
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidRefresh
		}
		return domain.TokenPair{}, err
	}

	if user.RefreshTokenHash == nil || !cryptox.FingerprintMatches(refreshToken, *user.RefreshTokenHash) {
		if user.RefreshTokenHash != nil {
			// Stale token replayed: drop the live one too
			revoked, err := s.Store.Users().SwapRefreshTokenHash(ctx, user.ID, *user.RefreshTokenHash, "")
			switch {
			case err != nil:
				l.Error("failed to revoke session after refresh reuse", slog.Any("error", err))
			case revoked:
				l.Warn("refresh token reuse detected, session revoked", slog.String("user_id", user.ID))
			}
		}
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	amr := claims.AMR
	if !claims.HasAMR(jwtx.AMRRefresh) {
		amr = append(slices.Clone(amr), jwtx.AMRRefresh)
	}
	pair, next, err := s.mintSession(user, amr)
	if err != nil {
		return domain.TokenPair{}, err
	}

	ok, err := s.Store.Users().SwapRefreshTokenHash(ctx, user.ID, *user.RefreshTokenHash, next)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("rotate refresh fingerprint: %w", err)
	}
	if !ok {
		// Lost a race with another refresh or a logout
		return domain.TokenPair{}, ErrInvalidRefresh
	}
	return pair, nil
}

// Logout forgets the stored refresh fingerprint. Access tokens already
// handed out stay valid until they expire.
func (s *TokenService) Logout(ctx context.Context, userID string) error {
	_, err := s.Store.Users().UpdateUser(ctx, userID, domain.UserPatch{
		RefreshTokenHash: domain.Ptr(""),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	slogx.FromContext(ctx).Info("user logged out", slog.String("user_id", userID))
	return nil
}

// MintPending returns a token that authorises one second-factor attempt.
func (s *TokenService) MintPending(user domain.User) (string, error) {
	claims := jwtx.NewPurposeClaims(jwtx.PurposeMFAPending, user.ID, s.ttl(s.PendingTTL, jwtx.DefaultPendingTokenTTL), s.Issuer, clockNow(s.Clock))
	claims.AMR = []string{jwtx.AMRPassword}
	return s.AccessKey.Sign(claims)
}

// ParsePending checks a pending token, returning ErrInvalidToken,
// ErrTokenExpired or ErrWrongTokenPurpose.
func (s *TokenService) ParsePending(token string) (jwtx.Claims, error) {
	return s.parse(token, jwtx.PurposeMFAPending)
}

// MintReset returns a token that authorises one password change. It is bound
// to the current password hash, so it stops working once the password changes.
func (s *TokenService) MintReset(user domain.User) (string, error) {
	claims := jwtx.NewPurposeClaims(jwtx.PurposePasswordReset, user.ID, s.ttl(s.ResetTTL, jwtx.DefaultResetTokenTTL), s.Issuer, clockNow(s.Clock))
	claims.Binding = cryptox.FingerprintToken(user.PasswordHash)
	return s.AccessKey.Sign(claims)
}

func (s *TokenService) ParseReset(token string) (jwtx.Claims, error) {
	return s.parse(token, jwtx.PurposePasswordReset)
}

// AccessVerifier accepts access tokens only.
func (s *TokenService) AccessVerifier() jwtx.Verifier {
	return jwtx.PurposeVerifier{Verifier: s.AccessKey, Purpose: jwtx.PurposeAccess}
}

func (s *TokenService) parse(token string, purpose jwtx.Purpose) (jwtx.Claims, error) {
	claims, err := jwtx.PurposeVerifier{Verifier: s.AccessKey, Purpose: purpose}.Verify(token)
	if err != nil {
		switch {
		case errors.Is(err, jwtx.ErrExpired):
			return jwtx.Claims{}, ErrTokenExpired
		case errors.Is(err, jwtx.ErrPurpose):
			return jwtx.Claims{}, ErrWrongTokenPurpose
		default:
			return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	return claims, nil
}

func (s *TokenService) mintSession(user domain.User, amr []string) (domain.TokenPair, string, error) {
	now := clockNow(s.Clock)
	accessTTL := s.ttl(s.AccessTTL, jwtx.DefaultAccessTokenTTL)

	access, err := s.AccessKey.Sign(jwtx.NewSessionClaims(
		jwtx.PurposeAccess, user.ID, user.Email, user.Role, amr, accessTTL, s.Issuer, now,
	))
	if err != nil {
		return domain.TokenPair{}, "", fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.RefreshKey.Sign(jwtx.NewSessionClaims(
		jwtx.PurposeRefresh, user.ID, user.Email, user.Role, amr, s.ttl(s.RefreshTTL, jwtx.DefaultRefreshTokenTTL), s.Issuer, now,
	))
	if err != nil {
		return domain.TokenPair{}, "", fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    accessTTL,
	}, cryptox.FingerprintToken(refresh), nil
}

func (s *TokenService) ttl(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
