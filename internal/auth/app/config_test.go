package app

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-0123456789abcdef0123"
	testRefreshSecret = "refresh-secret-0123456789abcdef012"
)

func newTestViper(values map[string]any) *viper.Viper {
	v := viper.New()
	v.Set("ACCESS_TOKEN_SECRET", testAccessSecret)
	v.Set("REFRESH_TOKEN_SECRET", testRefreshSecret)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "15m", want: 15 * time.Minute},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "7d", want: 7 * 24 * time.Hour},
		{in: " 10 ", want: 10 * time.Minute},
		{in: "0", want: 0},
		{in: "", wantErr: true},
		{in: "xd", wantErr: true},
		{in: "-1d", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(nil))
	require.NoError(t, err)

	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, 10*time.Minute, cfg.PendingTokenTTL)
	require.Equal(t, 10*time.Minute, cfg.ResetTokenTTL)
	require.Equal(t, 10*time.Minute, cfg.OTPTTL)
	require.Equal(t, "Portfolio", cfg.TOTPIssuer)
	require.Equal(t, uint(1), cfg.TOTPSkew)
	require.Equal(t, 5, cfg.MFAMaxAttempts)
	require.Equal(t, 15*time.Minute, cfg.MFAAttemptWindow)
	require.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 587, cfg.SMTP.Port)
	require.Equal(t, "starttls", cfg.SMTP.Encryption)
	require.True(t, cfg.BootstrapAdminMFA)
	require.NotNil(t, cfg.Lookup)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(newTestViper(map[string]any{
		"ACCESS_TOKEN_TTL":          "5m",
		"REFRESH_TOKEN_TTL":         "30d",
		"OTP_TTL_MINUTES":           3,
		"DATABASE_DRIVER":           "POSTGRES",
		"DATABASE_URL":              "postgres://auth@localhost/auth",
		"SMTP_HOST":                 "smtp.example.com",
		"SMTP_ENCRYPTION":           "TLS",
		"ENV":                       "production",
		"RATELIMIT_STRICT_REQUESTS": "42",
	}))
	require.NoError(t, err)

	require.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, 3*time.Minute, cfg.OTPTTL)
	require.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	require.Equal(t, "tls", cfg.SMTP.Encryption)
	require.Equal(t, "42", cfg.Lookup("RATELIMIT_STRICT_REQUESTS"))
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{name: "short access secret", values: map[string]any{"ACCESS_TOKEN_SECRET": "short"}},
		{name: "missing refresh secret", values: map[string]any{"REFRESH_TOKEN_SECRET": ""}},
		{name: "same secrets", values: map[string]any{"REFRESH_TOKEN_SECRET": testAccessSecret}},
		{name: "bad duration", values: map[string]any{"ACCESS_TOKEN_TTL": "forever"}},
		{name: "zero otp ttl", values: map[string]any{"OTP_TTL_MINUTES": 0}},
		{name: "empty totp issuer", values: map[string]any{"TOTP_ISSUER": " "}},
		{name: "short totp key", values: map[string]any{"TOTP_ENCRYPTION_KEY": "short"}},
		{name: "unknown driver", values: map[string]any{"DATABASE_DRIVER": "mysql"}},
		{name: "postgres without url", values: map[string]any{"DATABASE_DRIVER": "postgres"}},
		{name: "no smtp outside dev", values: map[string]any{"ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(newTestViper(tt.values))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestInitAuthKeys(t *testing.T) {
	cfg, err := loadConfig(newTestViper(nil))
	require.NoError(t, err)

	access, refresh, err := InitAuthKeys(cfg)
	require.NoError(t, err)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
}
