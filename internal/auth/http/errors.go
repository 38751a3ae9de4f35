package http

import (
	"errors"
	"net/http"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/service"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

// validator is implemented by every authsdk request type.
type validator interface {
	Validate() map[string]string
}

// decodeRequest reads and validates a JSON body. On failure it has already
// written the 400 and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst validator) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		slogx.FromContext(r.Context()).Debug("invalid request body", "err", err)
		authsdk.ErrInvalidRequest.WithMessage("invalid JSON body").WriteError(w)
		return false
	}
	if errs := dst.Validate(); errs != nil {
		authsdk.NewValidationError(errs).WriteError(w)
		return false
	}
	return true
}

// apiError maps a service error onto the response it should produce.
// Lockouts are checked first since they arrive joined with the
// umbrella verification error.
func apiError(err error) *authsdk.APIError {
	switch {
	case errors.Is(err, service.ErrTooManyAttempts):
		return authsdk.ErrTooManyAttempts
	case errors.Is(err, service.ErrInvalidCredentials):
		return authsdk.ErrInvalidCredentials
	case errors.Is(err, service.ErrMFAVerificationFailed):
		return authsdk.ErrMFAVerificationFailed
	case errors.Is(err, service.ErrResetVerificationFailed):
		return authsdk.ErrOTPVerificationFailed
	case errors.Is(err, service.ErrInvalidToken):
		return authsdk.ErrInvalidToken
	case errors.Is(err, service.ErrInvalidRefresh):
		return authsdk.ErrInvalidRefreshToken
	case errors.Is(err, service.ErrInvalidPassword):
		return authsdk.ErrInvalidPassword
	case errors.Is(err, service.ErrInvalidRequest):
		return authsdk.ErrInvalidRequest
	case errors.Is(err, service.ErrUserNotFound):
		return authsdk.ErrNotFound.WithMessage("user not found")
	case errors.Is(err, service.ErrOTPNotApplicable):
		return authsdk.ErrConflict.WithMessage("this account does not use emailed codes")
	case errors.Is(err, service.ErrTOTPAlreadyConfigured):
		return authsdk.ErrConflict.WithMessage("an authenticator app is already configured")
	case errors.Is(err, service.ErrNotificationFailed):
		return authsdk.ErrNotificationFailed
	default:
		return nil
	}
}

// writeError writes the mapped error, or a 500 for anything unexpected.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if e := apiError(err); e != nil {
		e.WriteError(w)
		return
	}
	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	authsdk.ErrServerError.WriteError(w)
}
