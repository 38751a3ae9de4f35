package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/limiter"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/service"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store/drivers/sqlite"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/cryptox"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/idx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/jwtx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/otpx"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-pepper")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	// Every request in these tests comes from the same address
	httpx.ConfigureRateLimits(func(key string) string {
		switch key {
		case "RATELIMIT_STRICT_REQUESTS", "RATELIMIT_STRICT_BURST",
			"RATELIMIT_MODERATE_REQUESTS", "RATELIMIT_MODERATE_BURST":
			return "1000"
		}
		return ""
	})

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type capturingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (n *capturingNotifier) SendOTP(_ context.Context, email, code string, _ domain.OTPPurpose) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.codes[email] = code
	return nil
}

func (n *capturingNotifier) code(t *testing.T, email string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.codes[email]
	require.True(t, ok, "no code sent to %s", email)
	return c
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type testServer struct {
	router   *Router
	store    *sqlite.Store
	notifier *capturingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	opts := jwtx.VerifyOptions{Issuer: "test-issuer"}
	accessKey, err := jwtx.NewHS256([]byte("access-secret-access-secret-0123456789"), opts)
	require.NoError(t, err)
	refreshKey, err := jwtx.NewHS256([]byte("refresh-secret-refresh-secret-0123456789"), opts)
	require.NoError(t, err)

	notifier := &capturingNotifier{codes: make(map[string]string)}
	lim := limiter.NewMemory(limiter.Config{MaxAttempts: 3})

	tokens := &service.TokenService{Store: st, AccessKey: accessKey, RefreshKey: refreshKey, Issuer: "test-issuer"}
	mfa := &service.MFAService{Store: st, Issuer: "Portfolio"}

	r := NewRouter("test", st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.TokenService = tokens
	r.MFAService = mfa
	r.UserService = &service.UserService{Store: st}
	r.AuthService = &service.AuthService{
		Store: st, Tokens: tokens, MFA: mfa, Notifier: notifier, Limiter: lim, TOTPSkew: 1,
	}
	r.PasswordResetService = &service.PasswordResetService{
		Store: st, Tokens: tokens, Notifier: notifier, Limiter: lim,
	}
	r.ApplyRoutes()

	return &testServer{router: r, store: st, notifier: notifier}
}

func (s *testServer) createUser(t *testing.T, email string, mfaEnabled bool, method domain.MFAMethod) string {
	t.Helper()
	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	id := idx.New().String()
	require.NoError(t, s.store.Users().CreateUser(context.Background(), domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		MFAEnabled:   mfaEnabled,
		MFAMethod:    method,
	}))
	return id
}

// do sends body (if non-nil) as JSON and returns the recorder.
func (s *testServer) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, code, decode[authsdk.APIError](t, rec).Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "plain@example.com", false, domain.MFAMethodEmail)

	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "Plain@Example.com", Password: testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	login := decode[authsdk.LoginResponse](t, rec)
	require.False(t, login.MFARequired)
	require.NotNil(t, login.TokenResponse)
	require.Equal(t, "Bearer", login.TokenType)
	require.Equal(t, 900, login.ExpiresIn)

	t.Run("me", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/auth/me", nil, login.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decode[authsdk.UserResponse](t, rec)
		require.Equal(t, "plain@example.com", me.Email)
		require.False(t, me.TOTPConfigured)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/auth/me", nil, login.RefreshToken)
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	rec = s.do(t, http.MethodPost, "/auth/refresh", authsdk.RefreshRequest{RefreshToken: login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[authsdk.TokenResponse](t, rec)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	t.Run("logout rejects another user id", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/logout", authsdk.LogoutRequest{UserID: "someone-else"}, rotated.AccessToken)
		requireError(t, rec, http.StatusForbidden, authsdk.ErrorCodeForbidden)
	})

	rec = s.do(t, http.MethodPost, "/auth/logout", nil, rotated.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/refresh", authsdk.RefreshRequest{RefreshToken: rotated.RefreshToken}, "")
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidRefreshToken)
}

func TestRefreshReuseRevokesSession(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "reuse@example.com", false, domain.MFAMethodEmail)

	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "reuse@example.com", Password: testPassword}, "")
	first := decode[authsdk.LoginResponse](t, rec)

	rec = s.do(t, http.MethodPost, "/auth/refresh", authsdk.RefreshRequest{RefreshToken: first.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[authsdk.TokenResponse](t, rec)

	// Replaying the first token revokes the second as well
	rec = s.do(t, http.MethodPost, "/auth/refresh", authsdk.RefreshRequest{RefreshToken: first.RefreshToken}, "")
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidRefreshToken)

	rec = s.do(t, http.MethodPost, "/auth/refresh", authsdk.RefreshRequest{RefreshToken: second.RefreshToken}, "")
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidRefreshToken)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "bob@example.com", false, domain.MFAMethodEmail)

	wrong := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "bob@example.com", Password: "nope-nope"}, "")
	unknown := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "who@example.com", Password: "nope-nope"}, "")

	requireError(t, wrong, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	requireError(t, unknown, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials)
	require.Equal(t, wrong.Body.String(), unknown.Body.String())

	t.Run("validation", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "bob"}, "")
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
		fields := decode[authsdk.APIError](t, rec).Fields
		require.Contains(t, fields, "email")
		require.Contains(t, fields, "password")
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"x","admin":true}`, "")
		requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})
}

func TestEmailMFA(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "mfa@example.com", true, domain.MFAMethodEmail)

	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "mfa@example.com", Password: testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[authsdk.LoginResponse](t, rec)
	require.True(t, login.MFARequired)
	require.Equal(t, authsdk.MFAMethodEmail, login.MFAMethod)
	require.NotEmpty(t, login.TempToken)
	require.Nil(t, login.TokenResponse)

	t.Run("pending token is not an access token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/auth/me", nil, login.TempToken)
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	})

	code := s.notifier.code(t, "mfa@example.com")
	wrongCode := "000000"
	if code == wrongCode {
		wrongCode = "111111"
	}

	rec = s.do(t, http.MethodPost, "/auth/verify-mfa", authsdk.VerifyMFARequest{TempToken: login.TempToken, OTP: wrongCode}, "")
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeMFAVerificationFailed)

	t.Run("resend replaces the code", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/resend-otp", authsdk.ResendOTPRequest{TempToken: login.TempToken}, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		code = s.notifier.code(t, "mfa@example.com")
	})

	rec = s.do(t, http.MethodPost, "/auth/verify-mfa", authsdk.VerifyMFARequest{TempToken: login.TempToken, OTP: code}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, decode[authsdk.TokenResponse](t, rec).AccessToken)

	// Codes are single use
	rec = s.do(t, http.MethodPost, "/auth/verify-mfa", authsdk.VerifyMFARequest{TempToken: login.TempToken, OTP: code}, "")
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeMFAVerificationFailed)
}

func TestMFALockout(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "lock@example.com", true, domain.MFAMethodEmail)

	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "lock@example.com", Password: testPassword}, "")
	login := decode[authsdk.LoginResponse](t, rec)
	code := s.notifier.code(t, "lock@example.com")

	wrongCode := "000000"
	if code == wrongCode {
		wrongCode = "111111"
	}
	for range 3 {
		s.do(t, http.MethodPost, "/auth/verify-mfa", authsdk.VerifyMFARequest{TempToken: login.TempToken, OTP: wrongCode}, "")
	}

	rec = s.do(t, http.MethodPost, "/auth/verify-mfa", authsdk.VerifyMFARequest{TempToken: login.TempToken, OTP: code}, "")
	requireError(t, rec, http.StatusTooManyRequests, authsdk.ErrorCodeTooManyAttempts)
}

func TestTOTPEnrollmentAndLogin(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "totp@example.com", true, domain.MFAMethodTOTP)

	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "totp@example.com", Password: testPassword}, "")
	login := decode[authsdk.LoginResponse](t, rec)
	require.True(t, login.MFARequired)
	require.True(t, login.TOTPSetupRequired)

	rec = s.do(t, http.MethodPost, "/auth/setup-totp", authsdk.SetupTOTPRequest{TempToken: login.TempToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	setup := decode[authsdk.TOTPSetupResponse](t, rec)
	require.NotEmpty(t, setup.Secret)
	require.Equal(t, "totp@example.com", setup.Account)

	// A second setup through the pending token is refused
	rec = s.do(t, http.MethodPost, "/auth/setup-totp", authsdk.SetupTOTPRequest{TempToken: login.TempToken}, "")
	requireError(t, rec, http.StatusConflict, authsdk.ErrorCodeConflict)

	code, err := otpx.TOTPCodeAt(setup.Secret, time.Now())
	require.NoError(t, err)
	rec = s.do(t, http.MethodPost, "/auth/verify-mfa", authsdk.VerifyMFARequest{TempToken: login.TempToken, OTP: code, Method: "totp"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode[authsdk.TokenResponse](t, rec)

	t.Run("bearer enrollment replaces the secret", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/setup-totp", authsdk.SetupTOTPRequest{}, session.AccessToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotEqual(t, setup.Secret, decode[authsdk.TOTPSetupResponse](t, rec).Secret)
	})

	t.Run("no token at all", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/setup-totp", authsdk.SetupTOTPRequest{}, "")
		requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	})

	t.Run("resend is not applicable", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/auth/resend-otp", authsdk.ResendOTPRequest{TempToken: login.TempToken}, "")
		requireError(t, rec, http.StatusConflict, authsdk.ErrorCodeConflict)
	})
}

func TestUpdateMFA(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "settings@example.com", false, domain.MFAMethodEmail)

	rec := s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "settings@example.com", Password: testPassword}, "")
	login := decode[authsdk.LoginResponse](t, rec)

	enabled, method := true, "totp"
	rec = s.do(t, http.MethodPut, "/auth/mfa", authsdk.UpdateMFARequest{Enabled: &enabled, Method: &method}, login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settings := decode[authsdk.MFASettingsResponse](t, rec)
	require.True(t, settings.MFAEnabled)
	require.Equal(t, "totp", settings.MFAMethod)

	rec = s.do(t, http.MethodPut, "/auth/mfa", authsdk.UpdateMFARequest{}, login.AccessToken)
	requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)

	rec = s.do(t, http.MethodPut, "/auth/mfa", authsdk.UpdateMFARequest{Enabled: &enabled}, "")
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "reset@example.com", false, domain.MFAMethodEmail)

	known := s.do(t, http.MethodPost, "/auth/forgot-password", authsdk.ForgotPasswordRequest{Email: "reset@example.com"}, "")
	unknown := s.do(t, http.MethodPost, "/auth/forgot-password", authsdk.ForgotPasswordRequest{Email: "ghost@example.com"}, "")
	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())

	code := s.notifier.code(t, "reset@example.com")

	rec := s.do(t, http.MethodPost, "/auth/verify-reset-otp", authsdk.VerifyResetOTPRequest{Email: "ghost@example.com", OTP: code}, "")
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeOTPVerificationFailed)

	rec = s.do(t, http.MethodPost, "/auth/verify-reset-otp", authsdk.VerifyResetOTPRequest{Email: "reset@example.com", OTP: code}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resetToken := decode[authsdk.VerifyResetOTPResponse](t, rec).ResetToken

	rec = s.do(t, http.MethodPost, "/auth/reset-password", authsdk.ResetPasswordRequest{ResetToken: resetToken, NewPassword: "short"}, "")
	requireError(t, rec, http.StatusBadRequest, authsdk.ErrorCodeInvalidPassword)

	rec = s.do(t, http.MethodPost, "/auth/reset-password", authsdk.ResetPasswordRequest{ResetToken: resetToken, NewPassword: "a brand new password"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The reset token is bound to the old password hash
	rec = s.do(t, http.MethodPost, "/auth/reset-password", authsdk.ResetPasswordRequest{ResetToken: resetToken, NewPassword: "another new password"}, "")
	requireError(t, rec, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)

	rec = s.do(t, http.MethodPost, "/auth/login", authsdk.LoginRequest{Email: "reset@example.com", Password: "a brand new password"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotPasswordDeliveryFailure(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "nomail@example.com", false, domain.MFAMethodEmail)
	s.notifier.err = errors.New("smtp down")

	rec := s.do(t, http.MethodPost, "/auth/forgot-password", authsdk.ForgotPasswordRequest{Email: "nomail@example.com"}, "")
	requireError(t, rec, http.StatusBadGateway, authsdk.ErrorCodeNotificationFailed)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/livez", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", decode[authsdk.HealthResponse](t, rec).Version)

	rec = s.do(t, http.MethodGet, "/readyz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, rec).Checks["database"])

	t.Run("degraded dependency", func(t *testing.T) {
		h := ReadyzHandler(time.Now(), "test", s.store, map[string]Pinger{"redis": failingPinger{}})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		res := decode[authsdk.HealthResponse](t, rec)
		require.Equal(t, "degraded", res.Status)
		require.Equal(t, "unavailable", res.Checks["redis"])
	})
}

func TestAPIErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: %w", service.ErrMFAVerificationFailed, service.ErrTooManyAttempts), http.StatusTooManyRequests},
		{service.ErrMFAVerificationFailed, http.StatusUnauthorized},
		{fmt.Errorf("%w: smtp", service.ErrNotificationFailed), http.StatusBadGateway},
		{service.ErrUserNotFound, http.StatusNotFound},
		{service.ErrTOTPAlreadyConfigured, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			e := apiError(tt.err)
			require.NotNil(t, e)
			require.Equal(t, tt.status, e.StatusCode)
		})
	}

	require.Nil(t, apiError(errors.New("disk on fire")))
}
