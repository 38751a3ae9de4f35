package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/service"
	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/httpx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/jwtx"
	"github.com/rohit5683/Portfolio-DevOps-sub001/pkg/slogx"

	_ "github.com/rohit5683/Portfolio-DevOps-sub001/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Pinger is a dependency readyz reports on, such as the redis limiter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService          *service.AuthService
	TokenService         *service.TokenService
	MFAService           *service.MFAService
	PasswordResetService *service.PasswordResetService
	UserService          *service.UserService

	// Dependencies beyond the store that must be up for readyz to pass
	Dependencies map[string]Pinger
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerPasswordReset()
	r.registerSession()
	r.registerAccount()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Portfolio Authentication Service API
//	@version		0.1.0
//	@description	Password sign-in with an emailed or authenticator-app second factor,
//	@description	JWT session tokens with refresh rotation, and email-code password reset.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// accessVerifier only accepts access tokens, never pending or reset ones.
func (r *Router) accessVerifier() jwtx.Verifier {
	return r.TokenService.AccessVerifier()
}

func (r *Router) registerLogin() {
	h := &LoginHandler{
		AuthService: r.AuthService,
		MFAService:  r.MFAService,
		Verifier:    r.accessVerifier(),
	}

	// Password guessing is limited per IP and per IP+email
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.ModerateLimit),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	// Pending token in the body or a bearer access token; the handler decides
	r.Mux.Handle("POST /auth/setup-totp",
		httpx.Chain(http.HandlerFunc(h.HandleSetupTOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /auth/verify-mfa",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /auth/resend-otp",
		httpx.Chain(http.HandlerFunc(h.HandleResendOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerPasswordReset() {
	h := &PasswordResetHandler{PasswordResetService: r.PasswordResetService}

	r.Mux.Handle("POST /auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("POST /auth/verify-reset-otp",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyResetOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSession() {
	h := &SessionHandler{TokenService: r.TokenService}

	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.AuthnMiddleware(r.accessVerifier()),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{
		UserService: r.UserService,
		MFAService:  r.MFAService,
	}

	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.AuthnMiddleware(r.accessVerifier()),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("PUT /auth/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateMFA),
			httpx.AuthnMiddleware(r.accessVerifier()),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Dependencies),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
