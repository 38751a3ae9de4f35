package authsdk

import "time"

// MFA methods.
const (
	MFAMethodEmail = "email"
	MFAMethodTOTP  = "totp"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct horse battery"`
}

// TokenResponse is a signed-in session.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType" example:"Bearer"`
	ExpiresIn    int    `json:"expiresIn" example:"900"` // seconds
}

// LoginResponse either carries a session (MFA disabled) or asks for a second
// factor using TempToken.
type LoginResponse struct {
	MFARequired       bool   `json:"mfaRequired"`
	MFAMethod         string `json:"mfaMethod,omitempty" example:"email"`
	TempToken         string `json:"tempToken,omitempty"`
	TOTPSetupRequired bool   `json:"totpSetupRequired,omitempty"`

	*TokenResponse
}

// SetupTOTPRequest is the body of POST /auth/setup-totp. Either TempToken is
// set, or the request carries a bearer access token.
type SetupTOTPRequest struct {
	TempToken string `json:"tempToken,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
}

// TOTPSetupResponse carries the new secret. It is only ever shown once.
type TOTPSetupResponse struct {
	Secret  string `json:"secret"`
	QRCode  string `json:"qrCode" example:"otpauth://totp/Portfolio:alice@example.com?secret=..."`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// VerifyMFARequest is the body of POST /auth/verify-mfa.
type VerifyMFARequest struct {
	TempToken string `json:"tempToken"`
	OTP       string `json:"otp" example:"123456"`
	Method    string `json:"method,omitempty" example:"totp"`
}

// ResendOTPRequest is the body of POST /auth/resend-otp.
type ResendOTPRequest struct {
	TempToken string `json:"tempToken"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"alice@example.com"`
}

// VerifyResetOTPRequest is the body of POST /auth/verify-reset-otp.
type VerifyResetOTPRequest struct {
	Email string `json:"email" example:"alice@example.com"`
	OTP   string `json:"otp" example:"123456"`
}

// VerifyResetOTPResponse carries the token that authorises ResetPassword.
type VerifyResetOTPResponse struct {
	ResetToken string `json:"resetToken"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest is the body of POST /auth/logout. UserID is optional and
// must match the access token's subject when given.
type LogoutRequest struct {
	UserID string `json:"userId,omitempty"`
}

// UpdateMFARequest is the body of PUT /auth/mfa.
type UpdateMFARequest struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Method  *string `json:"method,omitempty" example:"totp"`
}

// MFASettingsResponse reflects the stored second-factor settings.
type MFASettingsResponse struct {
	MFAEnabled     bool   `json:"mfaEnabled"`
	MFAMethod      string `json:"mfaMethod"`
	TOTPConfigured bool   `json:"totpConfigured"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	MFAEnabled     bool      `json:"mfaEnabled"`
	MFAMethod      string    `json:"mfaMethod"`
	TOTPConfigured bool      `json:"totpConfigured"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MessageResponse is returned by operations with nothing else to say.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status" example:"ok"`
	Uptime  string            `json:"uptime" example:"1h2m3s"`
	Version string            `json:"version" example:"0.1.0"`
	Checks  map[string]string `json:"checks,omitempty"`
}
