package http

import (
	"net/http"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/service"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
)

// forgotPasswordMessage is the same for known and unknown emails.
const forgotPasswordMessage = "If an account exists for that email, a reset code has been sent."

type PasswordResetHandler struct {
	PasswordResetService *service.PasswordResetService
}

// HandleForgotPassword handles POST /auth/forgot-password
//
//	@Summary		Request a password reset code
//	@Description	Always answers the same way for unknown emails.
//	@Tags			Password reset
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ForgotPasswordRequest	true	"Email"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.APIError	"Malformed request"
//	@Failure		502		{object}	authsdk.APIError	"Code could not be delivered"
//	@Router			/auth/forgot-password [post].
func (h *PasswordResetHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ForgotPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.PasswordResetService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: forgotPasswordMessage})
}

// HandleVerifyResetOTP handles POST /auth/verify-reset-otp
//
//	@Summary		Exchange a reset code for a reset token
//	@Tags			Password reset
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyResetOTPRequest	true	"Email and code"
//	@Success		200		{object}	authsdk.VerifyResetOTPResponse
//	@Failure		400		{object}	authsdk.APIError	"Malformed request"
//	@Failure		401		{object}	authsdk.APIError	"otp_verification_failed"
//	@Failure		429		{object}	authsdk.APIError	"Too many failed attempts"
//	@Router			/auth/verify-reset-otp [post].
func (h *PasswordResetHandler) HandleVerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyResetOTPRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	token, err := h.PasswordResetService.VerifyResetOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResetOTPResponse{ResetToken: token})
}

// HandleResetPassword handles POST /auth/reset-password
//
//	@Summary		Set a new password
//	@Description	The reset token works once. All sessions are signed out.
//	@Tags			Password reset
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResetPasswordRequest	true	"Reset token and new password"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.APIError	"Malformed request or weak password"
//	@Failure		401		{object}	authsdk.APIError	"invalid_token"
//	@Router			/auth/reset-password [post].
func (h *PasswordResetHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.PasswordResetService.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Password has been reset."})
}
