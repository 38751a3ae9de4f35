package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
)

// Error codes returned in the "error" field of every failure response.
const (
	ErrorCodeInvalidRequest        = "invalid_request"
	ErrorCodeInvalidCredentials    = "invalid_credentials"
	ErrorCodeMFAVerificationFailed = "mfa_verification_failed"
	ErrorCodeOTPVerificationFailed = "otp_verification_failed"
	ErrorCodeInvalidToken          = "invalid_token"
	ErrorCodeInvalidRefreshToken   = "invalid_refresh_token"
	ErrorCodeInvalidPassword       = "invalid_password"
	ErrorCodeTooManyAttempts       = "too_many_attempts"
	ErrorCodeRateLimited           = "rate_limit_exceeded"
	ErrorCodeForbidden             = "forbidden"
	ErrorCodeNotFound              = "not_found"
	ErrorCodeConflict              = "conflict"
	ErrorCodeNotificationFailed    = "notification_failed"
	ErrorCodeServerError           = "server_error"
)

// APIError is the error body of every failed request. The server writes it
// with WriteError and the client returns it from every call.
type APIError struct {
	StatusCode int               `json:"-"`
	Code       string            `json:"error"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for f, reason := range e.Fields {
		parts = append(parts, f+" "+reason)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// Is matches on status and code, so errors.Is(err, authsdk.ErrInvalidToken)
// works for errors decoded from a response.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.StatusCode == e.StatusCode && t.Code == e.Code
}

// WriteError writes the error as JSON with its status code.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// WithMessage returns a copy of e with a different message.
func (e *APIError) WithMessage(msg string) *APIError {
	cp := *e
	cp.Message = msg
	return &cp
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeInvalidRequest,
		Message:    "the request is malformed or missing required fields",
	}

	ErrInvalidPassword = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeInvalidPassword,
		Message:    "password must be between 8 and 128 characters",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidCredentials,
		Message:    "invalid email or password",
	}

	ErrMFAVerificationFailed = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeMFAVerificationFailed,
		Message:    "verification failed",
	}

	ErrOTPVerificationFailed = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeOTPVerificationFailed,
		Message:    "verification failed",
	}

	ErrInvalidToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidToken,
		Message:    "the token is missing, invalid or expired",
	}

	ErrInvalidRefreshToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidRefreshToken,
		Message:    "the refresh token is invalid or has been revoked",
	}

	ErrForbidden = &APIError{
		StatusCode: http.StatusForbidden,
		Code:       ErrorCodeForbidden,
		Message:    "not allowed",
	}

	ErrNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeNotFound,
		Message:    "not found",
	}

	ErrConflict = &APIError{
		StatusCode: http.StatusConflict,
		Code:       ErrorCodeConflict,
		Message:    "the request conflicts with the current state",
	}

	ErrTooManyAttempts = &APIError{
		StatusCode: http.StatusTooManyRequests,
		Code:       ErrorCodeTooManyAttempts,
		Message:    "too many failed attempts, try again later",
	}

	ErrNotificationFailed = &APIError{
		StatusCode: http.StatusBadGateway,
		Code:       ErrorCodeNotificationFailed,
		Message:    "the verification code could not be delivered",
	}

	ErrServerError = &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeServerError,
		Message:    "internal server error",
	}
)

// NewValidationError is a 400 listing the offending fields.
func NewValidationError(fields map[string]string) *APIError {
	e := *ErrInvalidRequest
	e.Message = "validation failed"
	e.Fields = fields
	return &e
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       ErrorCodeServerError,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
