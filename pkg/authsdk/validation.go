package authsdk

import (
	"net/mail"
	"strings"
)

const (
	reasonRequired = "required"
	reasonEmail    = "must be a valid email address"
	reasonMethod   = "must be email or totp"
)

// The Validate methods check shape only: presence and format. They return
// a map of field name to reason, or nil when the request is well formed.

func (r LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, r.Email)
	required(errs, "password", r.Password)
	return orNil(errs)
}

func (r SetupTOTPRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Email) != "" {
		validateEmail(errs, r.Email)
	}
	return orNil(errs)
}

func (r VerifyMFARequest) Validate() map[string]string {
	errs := make(map[string]string)
	required(errs, "tempToken", r.TempToken)
	required(errs, "otp", r.OTP)
	if r.Method != "" {
		validateMethod(errs, r.Method)
	}
	return orNil(errs)
}

func (r ResendOTPRequest) Validate() map[string]string {
	errs := make(map[string]string)
	required(errs, "tempToken", r.TempToken)
	return orNil(errs)
}

func (r ForgotPasswordRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, r.Email)
	return orNil(errs)
}

func (r VerifyResetOTPRequest) Validate() map[string]string {
	errs := make(map[string]string)
	validateEmail(errs, r.Email)
	required(errs, "otp", r.OTP)
	return orNil(errs)
}

func (r ResetPasswordRequest) Validate() map[string]string {
	errs := make(map[string]string)
	required(errs, "resetToken", r.ResetToken)
	if r.NewPassword == "" {
		errs["newPassword"] = reasonRequired
	}
	return orNil(errs)
}

func (r RefreshRequest) Validate() map[string]string {
	errs := make(map[string]string)
	required(errs, "refreshToken", r.RefreshToken)
	return orNil(errs)
}

func (r UpdateMFARequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Enabled == nil && r.Method == nil {
		errs["enabled"] = "enabled or method is required"
	}
	if r.Method != nil {
		validateMethod(errs, *r.Method)
	}
	return orNil(errs)
}

func required(errs map[string]string, field, v string) {
	if strings.TrimSpace(v) == "" {
		errs[field] = reasonRequired
	}
}

func validateEmail(errs map[string]string, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs["email"] = reasonRequired
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		errs["email"] = reasonEmail
	}
}

func validateMethod(errs map[string]string, m string) {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case MFAMethodEmail, MFAMethodTOTP:
	default:
		errs["method"] = reasonMethod
	}
}

func orNil(errs map[string]string) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
