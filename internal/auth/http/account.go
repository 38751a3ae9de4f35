package http

import (
	"net/http"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/service"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
)

// AccountHandler serves the signed-in user's own account.
type AccountHandler struct {
	UserService *service.UserService
	MFAService  *service.MFAService
}

// HandleMe handles GET /auth/me
//
//	@Summary		Current user
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.APIError	"invalid_token"
//	@Failure		404	{object}	authsdk.APIError	"User no longer exists"
//	@Router			/auth/me [get].
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{
		ID:             user.ID,
		Email:          user.Email,
		Role:           user.Role,
		MFAEnabled:     user.MFAEnabled,
		MFAMethod:      string(user.MFAMethod),
		TOTPConfigured: user.HasTOTPSecret(),
		CreatedAt:      user.CreatedAt,
	})
}

// HandleUpdateMFA handles PUT /auth/mfa
//
//	@Summary		Change second-factor settings
//	@Description	Turns MFA on or off and picks the method. Switching to totp without an
//	@Description	enrolled authenticator makes the next sign-in ask for enrollment.
//	@Tags			Account
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.UpdateMFARequest	true	"Settings to change"
//	@Success		200		{object}	authsdk.MFASettingsResponse
//	@Failure		400		{object}	authsdk.APIError	"Malformed request"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Router			/auth/mfa [put].
func (h *AccountHandler) HandleUpdateMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.UpdateMFARequest
	if !decodeRequest(w, r, &req) {
		return
	}

	var method *domain.MFAMethod
	if req.Method != nil {
		m, err := domain.ParseMFAMethod(*req.Method)
		if err != nil {
			authsdk.NewValidationError(map[string]string{"method": "must be email or totp"}).WriteError(w)
			return
		}
		method = &m
	}

	user, err := h.MFAService.UpdateSettings(ctx, userID, req.Enabled, method)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFASettingsResponse{
		MFAEnabled:     user.MFAEnabled,
		MFAMethod:      string(user.MFAMethod),
		TOTPConfigured: user.HasTOTPSecret(),
	})
}
