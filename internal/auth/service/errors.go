package service

import "errors"

// Errors returned to callers. The HTTP layer maps each to a status and code.
var (
	ErrInvalidCredentials      = errors.New("invalid_credentials")
	ErrMFAVerificationFailed   = errors.New("mfa_verification_failed")
	ErrResetVerificationFailed = errors.New("otp_verification_failed")
	ErrInvalidToken            = errors.New("invalid_token")
	ErrInvalidRefresh          = errors.New("invalid_refresh_token")
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidPassword         = errors.New("invalid_password")
	ErrTooManyAttempts         = errors.New("too_many_attempts")
	ErrNotificationFailed      = errors.New("notification_failed")
	ErrUserNotFound            = errors.New("user_not_found")
	ErrOTPNotApplicable        = errors.New("otp_not_applicable")
	ErrTOTPAlreadyConfigured   = errors.New("totp_already_configured")
)

// Reasons a second-factor or reset check failed. They are logged but never
// returned as-is from VerifyMFA or VerifyResetOTP, so a caller can't tell
// which check tripped.
var (
	ErrTokenExpired      = errors.New("token_expired")
	ErrWrongTokenPurpose = errors.New("wrong_token_purpose")
	ErrNoPendingOTP      = errors.New("no_pending_otp")
	ErrOTPExpired        = errors.New("otp_expired")
	ErrInvalidOTP        = errors.New("invalid_otp")
	ErrTOTPNotConfigured = errors.New("totp_not_configured")
)
