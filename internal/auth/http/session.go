package http

import (
	"net/http"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/service"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
)

type SessionHandler struct {
	TokenService *service.TokenService
}

// HandleRefresh handles POST /auth/refresh
//
//	@Summary		Rotate the session tokens
//	@Description	The submitted refresh token stops working. Presenting an already rotated
//	@Description	token revokes the session.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"Malformed request"
//	@Failure		401		{object}	authsdk.APIError	"invalid_refresh_token"
//	@Router			/auth/refresh [post].
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleLogout handles POST /auth/logout
//
//	@Summary		Sign out
//	@Description	Revokes the refresh token. The body is optional; userId must match the token.
//	@Tags			Session
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LogoutRequest	false	"Optional user id"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Failure		403		{object}	authsdk.APIError	"userId does not match the token"
//	@Router			/auth/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if r.ContentLength != 0 {
		var req authsdk.LogoutRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			authsdk.ErrInvalidRequest.WithMessage("invalid JSON body").WriteError(w)
			return
		}
		if req.UserID != "" && req.UserID != userID {
			authsdk.ErrForbidden.WithMessage("userId does not match the access token").WriteError(w)
			return
		}
	}

	if err := h.TokenService.Logout(ctx, userID); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Signed out."})
}
