package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// refreshBuffer renews the access token this long before it expires.
const refreshBuffer = 30 * time.Second

var ErrNoRefreshToken = errors.New("authsdk: access token expired and no refresh token available")

// Session is a signed-in user. All Session methods refresh the access token
// when it is about to expire.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// NewSession wraps a token pair from Login, VerifyMFA or Refresh.
func (c *SDKClient) NewSession(tokens *TokenResponse) *Session {
	s := &Session{client: c}
	s.store(tokens)
	return s
}

func (s *Session) store(tokens *TokenResponse) {
	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - refreshBuffer)
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// getValidToken returns a valid access token, refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	s.store(tokens)
	return s.accessToken, nil
}

func (s *Session) call(ctx context.Context, method, path string, body, out any) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}
	return s.client.call(ctx, method, path, body, token, out)
}

// Me returns the signed-in user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	var out UserResponse
	if err := s.call(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMFA changes the second-factor settings.
func (s *Session) UpdateMFA(ctx context.Context, req UpdateMFARequest) (*MFASettingsResponse, error) {
	var out MFASettingsResponse
	if err := s.call(ctx, http.MethodPut, "/auth/mfa", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnrollTOTP creates a new authenticator secret, replacing any previous one.
func (s *Session) EnrollTOTP(ctx context.Context) (*TOTPSetupResponse, error) {
	var out TOTPSetupResponse
	if err := s.call(ctx, http.MethodPost, "/auth/setup-totp", SetupTOTPRequest{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the refresh token. The access token stays valid until it
// expires, so callers should drop the Session.
func (s *Session) Logout(ctx context.Context) error {
	var out MessageResponse
	if err := s.call(ctx, http.MethodPost, "/auth/logout", LogoutRequest{}, &out); err != nil {
		return err
	}

	s.mu.Lock()
	s.refreshToken = ""
	s.mu.Unlock()
	return nil
}
