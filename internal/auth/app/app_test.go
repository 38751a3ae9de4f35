package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, values map[string]any) *Application {
	t.Helper()
	dir := t.TempDir()

	base := map[string]any{
		"AUTH_DATABASE_FILE":       filepath.Join(dir, "auth.db"),
		"AUTH_PEPPER_FILE":         filepath.Join(dir, "pepper"),
		"BOOTSTRAP_ADMIN_EMAIL":    "admin@example.com",
		"BOOTSTRAP_ADMIN_PASSWORD": "Admin123!",
		"BOOTSTRAP_ADMIN_MFA":      false,
		"LOG_LEVEL":                "error",
	}
	for k, v := range values {
		base[k] = v
	}

	cfg, err := loadConfig(newTestViper(base))
	require.NoError(t, err)

	application, err := New(cfg)
	require.NoError(t, err)

	application.housekeepingService.Start()
	t.Cleanup(func() { require.NoError(t, application.Shutdown()) })
	return application
}

func TestApplicationLoginWithSeededAdmin(t *testing.T) {
	application := newTestApp(t, nil)

	body, _ := json.Marshal(authsdk.LoginRequest{Email: "Admin@Example.com", Password: "Admin123!"})
	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authsdk.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.MFARequired)
	require.NotNil(t, resp.TokenResponse)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
}

func TestApplicationReadyzWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	application := newTestApp(t, map[string]any{"REDIS_URL": "redis://" + mr.Addr()})

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health authsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Checks["redis"])
	require.Equal(t, "ok", health.Checks["database"])
}

func TestApplicationRejectsUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	dir := t.TempDir()
	cfg, err := loadConfig(newTestViper(map[string]any{
		"AUTH_DATABASE_FILE": filepath.Join(dir, "auth.db"),
		"AUTH_PEPPER_FILE":   filepath.Join(dir, "pepper"),
		"REDIS_URL":          "redis://" + addr,
	}))
	require.NoError(t, err)

	_, err = New(cfg)
	require.Error(t, err)
}
