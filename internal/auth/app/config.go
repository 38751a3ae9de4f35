package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/cryptox"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/jwtx"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	AccessTokenSecret  string        // Required: HMAC secret for access, pending and reset tokens
	RefreshTokenSecret string        // Required: HMAC secret for refresh tokens, must differ from the access secret
	Issuer             string        // Issuer claim for tokens (default: portfolio-auth)
	AccessTokenTTL     time.Duration // default: 15m
	RefreshTokenTTL    time.Duration // default: 7d
	PendingTokenTTL    time.Duration // Time between password and second factor (default: 10m)
	ResetTokenTTL      time.Duration // Time between verified reset code and new password (default: 10m)
	OTPTTL             time.Duration // Emailed code lifetime (OTP_TTL_MINUTES, default: 10)

	TOTPIssuer        string // Name shown in authenticator apps (default: Portfolio)
	TOTPSkew          uint   // Accepted 30s steps either side of now (default: 1)
	TOTPEncryptionKey string // Optional: seals stored TOTP secrets, at least 32 bytes

	MFAMaxAttempts   int           // Failed codes before lockout (default: 5)
	MFAAttemptWindow time.Duration // Lockout window (default: 15m)
	RedisURL         string        // Optional: shares attempt counters across instances

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file (default: ./auth.db)
	DatabaseURL    string // Postgres DSN, required for the postgres driver
	PepperFile     string // File holding the password pepper (default: ./pepper)

	SMTP SMTPSettings

	BootstrapAdminEmail    string // Optional: seeds an admin when the store is empty
	BootstrapAdminPassword string // Optional: generated and logged once when empty
	BootstrapAdminMFA      bool   // default: true

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	// Lookup reads raw keys, used for the RATELIMIT_* overrides.
	Lookup func(key string) string
}

// SMTPSettings mirrors notify.SMTPConfig. Host unset means codes are only
// logged, which is refused outside dev.
type SMTPSettings struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	FromName   string
	Encryption string
}

// LoadConfig reads .env (if present) and the environment. Environment
// variables win over .env.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	return loadConfig(v)
}

func setDefaults(v *viper.Viper) {
	v.AutomaticEnv()

	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("AUTH_ISSUER", "portfolio-auth")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "7d")
	v.SetDefault("PENDING_TOKEN_TTL", "10m")
	v.SetDefault("RESET_TOKEN_TTL", "10m")
	v.SetDefault("OTP_TTL_MINUTES", 10)
	v.SetDefault("TOTP_ISSUER", "Portfolio")
	v.SetDefault("TOTP_SKEW", 1)
	v.SetDefault("TOTP_ENCRYPTION_KEY", "")
	v.SetDefault("MFA_MAX_ATTEMPTS", 5)
	v.SetDefault("MFA_ATTEMPT_WINDOW", "15m")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("AUTH_DATABASE_FILE", "auth.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTH_PEPPER_FILE", "pepper")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("SMTP_FROM_NAME", "")
	v.SetDefault("SMTP_ENCRYPTION", "starttls")
	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
	v.SetDefault("BOOTSTRAP_ADMIN_MFA", true)
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_GRACE_PERIOD", "10s")
	v.SetDefault("HOUSEKEEPING_INTERVAL", "1h")
}

func loadConfig(v *viper.Viper) (Config, error) {
	setDefaults(v)

	var errs []error
	duration := func(key string) time.Duration {
		d, err := ParseDuration(v.GetString(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}

	cfg := Config{
		AccessTokenSecret:  v.GetString("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: v.GetString("REFRESH_TOKEN_SECRET"),
		Issuer:             v.GetString("AUTH_ISSUER"),
		AccessTokenTTL:     duration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:    duration("REFRESH_TOKEN_TTL"),
		PendingTokenTTL:    duration("PENDING_TOKEN_TTL"),
		ResetTokenTTL:      duration("RESET_TOKEN_TTL"),
		OTPTTL:             time.Duration(v.GetInt("OTP_TTL_MINUTES")) * time.Minute,

		TOTPIssuer:        v.GetString("TOTP_ISSUER"),
		TOTPSkew:          v.GetUint("TOTP_SKEW"),
		TOTPEncryptionKey: v.GetString("TOTP_ENCRYPTION_KEY"),

		MFAMaxAttempts:   v.GetInt("MFA_MAX_ATTEMPTS"),
		MFAAttemptWindow: duration("MFA_ATTEMPT_WINDOW"),
		RedisURL:         v.GetString("REDIS_URL"),

		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseFile:   v.GetString("AUTH_DATABASE_FILE"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		PepperFile:     v.GetString("AUTH_PEPPER_FILE"),

		SMTP: SMTPSettings{
			Host:       v.GetString("SMTP_HOST"),
			Port:       v.GetInt("SMTP_PORT"),
			Username:   v.GetString("SMTP_USERNAME"),
			Password:   v.GetString("SMTP_PASSWORD"),
			From:       v.GetString("SMTP_FROM"),
			FromName:   v.GetString("SMTP_FROM_NAME"),
			Encryption: strings.ToLower(v.GetString("SMTP_ENCRYPTION")),
		},

		BootstrapAdminEmail:    v.GetString("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminMFA:      v.GetBool("BOOTSTRAP_ADMIN_MFA"),

		Env:                  v.GetString("ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		Port:                 v.GetInt("PORT"),
		ShutdownGracePeriod:  duration("SHUTDOWN_GRACE_PERIOD"),
		HousekeepingInterval: duration("HOUSEKEEPING_INTERVAL"),

		Lookup: v.GetString,
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the service can't start without.
func (c Config) Validate() error {
	var errs []error

	if len(c.AccessTokenSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}
	if len(c.RefreshTokenSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL_MINUTES must be positive"))
	}
	if strings.TrimSpace(c.TOTPIssuer) == "" {
		errs = append(errs, errors.New("TOTP_ISSUER must not be empty"))
	}

	if c.TOTPEncryptionKey != "" && len(c.TOTPEncryptionKey) < cryptox.MinSecretBoxKeyLength {
		errs = append(errs, fmt.Errorf("TOTP_ENCRYPTION_KEY must be at least %d bytes", cryptox.MinSecretBoxKeyLength))
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}

	if c.SMTP.Host == "" && c.Env != "dev" {
		errs = append(errs, errors.New("SMTP_HOST is required outside dev"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ParseDuration accepts Go durations ("90s", "1h30m"), whole days ("7d") and
// bare integers, which are read as minutes.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	if minutes, err := strconv.Atoi(s); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}

	return 0, fmt.Errorf("invalid duration %q", s)
}
