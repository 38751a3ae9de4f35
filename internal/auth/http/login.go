package http

import (
	"net/http"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/service"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/jwtx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

// LoginHandler serves the sign-in steps: password, second factor and
// authenticator enrollment.
type LoginHandler struct {
	AuthService *service.AuthService
	MFAService  *service.MFAService
	Verifier    jwtx.Verifier // access tokens, for bearer TOTP enrollment
}

func tokenResponse(p domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    int(p.ExpiresIn.Seconds()),
	}
}

func totpResponse(e domain.TOTPEnrollment) authsdk.TOTPSetupResponse {
	return authsdk.TOTPSetupResponse{
		Secret:  e.Secret,
		QRCode:  e.QRCode,
		Issuer:  e.Issuer,
		Account: e.Account,
	}
}

// HandleLogin handles POST /auth/login
//
//	@Summary		Sign in with email and password
//	@Description	Returns a session when MFA is disabled. Otherwise returns mfaRequired with a
//	@Description	temporary token; for email MFA a code is sent, for TOTP totpSetupRequired
//	@Description	says whether an authenticator still has to be enrolled.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.APIError	"Malformed request"
//	@Failure		401		{object}	authsdk.APIError	"invalid_credentials"
//	@Failure		429		{object}	authsdk.APIError	"Rate limited"
//	@Router			/auth/login [post].
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	out, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := authsdk.LoginResponse{
		MFARequired:       out.MFARequired,
		MFAMethod:         string(out.MFAMethod),
		TempToken:         out.PendingToken,
		TOTPSetupRequired: out.TOTPSetupRequired,
	}
	if out.Session != nil {
		tokens := tokenResponse(*out.Session)
		res.TokenResponse = &tokens
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleSetupTOTP handles POST /auth/setup-totp
//
//	@Summary		Enroll an authenticator app
//	@Description	With tempToken from login: only allowed while the user has no TOTP secret.
//	@Description	With a bearer access token: replaces the caller's secret.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SetupTOTPRequest	true	"Temporary token, or empty with a bearer token"
//	@Success		200		{object}	authsdk.TOTPSetupResponse
//	@Failure		400		{object}	authsdk.APIError	"Malformed request"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Failure		403		{object}	authsdk.APIError	"userId does not match the token"
//	@Failure		409		{object}	authsdk.APIError	"Authenticator already configured"
//	@Router			/auth/setup-totp [post].
func (h *LoginHandler) HandleSetupTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.SetupTOTPRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if req.TempToken != "" {
		enrollment, err := h.AuthService.SetupTOTP(ctx, req.TempToken)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, totpResponse(enrollment))
		return
	}

	raw, ok := httpx.BearerToken(r)
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}
	claims, err := h.Verifier.Verify(raw)
	if err != nil {
		slogx.FromContext(ctx).Warn("totp setup: bearer rejected", "err", err)
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}
	if req.UserID != "" && req.UserID != claims.Subject {
		authsdk.ErrForbidden.WithMessage("userId does not match the access token").WriteError(w)
		return
	}

	enrollment, err := h.MFAService.EnrollTOTP(ctx, claims.Subject, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, totpResponse(enrollment))
}

// HandleVerifyMFA handles POST /auth/verify-mfa
//
//	@Summary		Complete sign-in with the second factor
//	@Description	Accepts the emailed code or an authenticator code. Every failure reason
//	@Description	gives the same response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyMFARequest	true	"Temporary token and code"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.APIError	"Malformed request"
//	@Failure		401		{object}	authsdk.APIError	"mfa_verification_failed"
//	@Failure		429		{object}	authsdk.APIError	"Too many failed attempts"
//	@Router			/auth/verify-mfa [post].
func (h *LoginHandler) HandleVerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyMFARequest
	if !decodeRequest(w, r, &req) {
		return
	}

	pair, err := h.AuthService.VerifyMFA(r.Context(), req.TempToken, req.OTP, req.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleResendOTP handles POST /auth/resend-otp
//
//	@Summary		Send a new sign-in code
//	@Description	Replaces the outstanding emailed code. Only for email MFA.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResendOTPRequest	true	"Temporary token"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Failure		409		{object}	authsdk.APIError	"Account does not use emailed codes"
//	@Router			/auth/resend-otp [post].
func (h *LoginHandler) HandleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResendOTPRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.AuthService.ResendOTP(r.Context(), req.TempToken); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "A new verification code has been sent."})
}
