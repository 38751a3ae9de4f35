package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient calls the unauthenticated endpoints of the authentication
// service and creates Sessions for the authenticated ones.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a 10s request timeout.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login checks the password. The response either carries a session or asks
// for a second factor.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetupTOTP enrolls an authenticator app during sign-in, using the
// temporary token from Login. Only allowed while no secret is configured.
func (c *SDKClient) SetupTOTP(ctx context.Context, tempToken string) (*TOTPSetupResponse, error) {
	var out TOTPSetupResponse
	if err := c.call(ctx, http.MethodPost, "/auth/setup-totp", SetupTOTPRequest{TempToken: tempToken}, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA completes sign-in with the second factor.
func (c *SDKClient) VerifyMFA(ctx context.Context, req VerifyMFARequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.call(ctx, http.MethodPost, "/auth/verify-mfa", req, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendOTP sends a fresh sign-in code, replacing the previous one.
func (c *SDKClient) ResendOTP(ctx context.Context, tempToken string) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, "/auth/resend-otp", ResendOTPRequest{TempToken: tempToken}, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword asks for a reset code. The response is the same whether or
// not the email is registered.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.call(ctx, http.MethodPost, "/auth/forgot-password", ForgotPasswordRequest{Email: email}, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyResetOTP exchanges a reset code for a reset token.
func (c *SDKClient) VerifyResetOTP(ctx context.Context, email, otp string) (*VerifyResetOTPResponse, error) {
	var out VerifyResetOTPResponse
	if err := c.call(ctx, http.MethodPost, "/auth/verify-reset-otp", VerifyResetOTPRequest{Email: email, OTP: otp}, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetPassword sets a new password. Every existing session is signed out.
func (c *SDKClient) ResetPassword(ctx context.Context, resetToken, newPassword string) (*MessageResponse, error) {
	var out MessageResponse
	req := ResetPasswordRequest{ResetToken: resetToken, NewPassword: newPassword}
	if err := c.call(ctx, http.MethodPost, "/auth/reset-password", req, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// stops working.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.call(ctx, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.call(ctx, http.MethodGet, "/livez", nil, "", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness checks if the service is ready.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.call(ctx, http.MethodGet, "/readyz", nil, "", &health); err != nil {
		return nil, err
	}
	return &health, nil
}
