package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/http"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/domain"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/limiter"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/notify"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/service"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store/drivers/postgres"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store/drivers/sqlite"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/cryptox"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/jwtx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	redisKeyPrefix = "auth:attempts:"
	startupTimeout = 10 * time.Second
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	accessKey   *jwtx.HS256
	refreshKey  *jwtx.HS256
	totpSecrets *cryptox.SecretBox // nil unless TOTP_ENCRYPTION_KEY is set
	limiter     limiter.Limiter
	notifier    service.Notifier

	// closers run on shutdown after the database is closed
	closers []func() error

	// Services
	tokenService         *service.TokenService
	authService          *service.AuthService
	mfaService           *service.MFAService
	passwordResetService *service.PasswordResetService
	userService          *service.UserService
	bootstrapService     *service.BootstrapService
	housekeepingService  *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	ctx = slogx.WithContext(ctx, app.logger)

	// Set pepper path for password hashing and fail early if it's unreadable
	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	var err error
	if app.accessKey, app.refreshKey, err = InitAuthKeys(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	if cfg.TOTPEncryptionKey != "" {
		if app.totpSecrets, err = cryptox.NewSecretBox([]byte(cfg.TOTPEncryptionKey)); err != nil {
			return nil, fmt.Errorf("failed to initialize TOTP secret encryption: %w", err)
		}
	}
	if cfg.Lookup != nil {
		httpx.ConfigureRateLimits(cfg.Lookup)
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initLimiter(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initNotifier(); err != nil {
		app.closeAll()
		return nil, err
	}

	app.initServices()

	if err := app.seedAdmin(ctx); err != nil {
		app.closeAll()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeAll()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeAll(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// closeAll releases the database and any other connections. The first
// error is returned after everything has been attempted.
func (app *Application) closeAll() error {
	var first error
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		first = err
	}
	for _, c := range app.closers {
		if err := c(); err != nil {
			app.logger.Error("error closing dependency", "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initLimiter uses redis when REDIS_URL is set so every instance shares the
// same counters, and an in-process limiter otherwise.
func (app *Application) initLimiter(ctx context.Context) error {
	cfg := limiter.Config{
		MaxAttempts: app.cfg.MFAMaxAttempts,
		Window:      app.cfg.MFAAttemptWindow,
	}

	if app.cfg.RedisURL == "" {
		app.limiter = limiter.NewMemory(cfg)
		app.logger.Info("attempt limiter: in-memory")
		return nil
	}

	l, err := limiter.NewRedisFromURL(ctx, app.cfg.RedisURL, redisKeyPrefix, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect attempt limiter: %w", err)
	}
	app.limiter = l
	app.closers = append(app.closers, l.Close)
	app.logger.Info("attempt limiter: redis")
	return nil
}

func (app *Application) initNotifier() error {
	if app.cfg.SMTP.Host == "" {
		app.logger.Warn("SMTP_HOST not set: one-time codes will be written to the log")
		app.notifier = notify.Log{}
		return nil
	}

	n, err := notify.NewSMTP(notify.SMTPConfig(app.cfg.SMTP))
	if err != nil {
		return fmt.Errorf("failed to configure smtp: %w", err)
	}
	app.notifier = n
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:      app.db,
		AccessKey:  app.accessKey,
		RefreshKey: app.refreshKey,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
		PendingTTL: app.cfg.PendingTokenTTL,
		ResetTTL:   app.cfg.ResetTokenTTL,
	}

	app.mfaService = &service.MFAService{
		Store:   app.db,
		Issuer:  app.cfg.TOTPIssuer,
		Secrets: app.totpSecrets,
	}

	app.authService = &service.AuthService{
		Store:    app.db,
		Tokens:   app.tokenService,
		MFA:      app.mfaService,
		Notifier: app.notifier,
		Limiter:  app.limiter,
		OTPTTL:   app.cfg.OTPTTL,
		TOTPSkew: app.cfg.TOTPSkew,
	}

	app.passwordResetService = &service.PasswordResetService{
		Store:    app.db,
		Tokens:   app.tokenService,
		Notifier: app.notifier,
		Limiter:  app.limiter,
		OTPTTL:   app.cfg.OTPTTL,
	}

	app.userService = &service.UserService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{Store: app.db}

	var pruners []service.Pruner
	if p, ok := app.limiter.(service.Pruner); ok {
		pruners = append(pruners, p)
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		pruners...,
	)
}

// seedAdmin creates the first admin from BOOTSTRAP_ADMIN_* on an empty store.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.BootstrapAdminEmail == "" {
		return nil
	}

	id, password, err := app.bootstrapService.SeedAdmin(ctx, domain.BootstrapData{
		AdminEmail:    app.cfg.BootstrapAdminEmail,
		AdminPassword: app.cfg.BootstrapAdminPassword,
		MFAEnabled:    app.cfg.BootstrapAdminMFA,
		MFAMethod:     domain.MFAMethodEmail,
	})
	switch {
	case errors.Is(err, service.ErrBootstrapAlready):
		return nil
	case err != nil:
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	attrs := []any{"user_id", id, slogx.Email(app.cfg.BootstrapAdminEmail)}
	if app.cfg.BootstrapAdminPassword == "" {
		// Shown once; there is no other way to learn a generated password
		attrs = append(attrs, "generated_password", password)
	}
	app.logger.Warn("bootstrap admin created", attrs...)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.MFAService = app.mfaService
	router.PasswordResetService = app.passwordResetService
	router.UserService = app.userService
	if p, ok := app.limiter.(httpapi.Pinger); ok {
		router.Dependencies = map[string]httpapi.Pinger{"redis": p}
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
