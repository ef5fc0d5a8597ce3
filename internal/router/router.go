package router // package router defines how HTTP routes are registered for the API

import (
	"context"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/auth-session-service/internal/auth"
	"github.com/iliyamo/auth-session-service/internal/config"
	"github.com/iliyamo/auth-session-service/internal/handler"    // handlers that implement the endpoints
	"github.com/iliyamo/auth-session-service/internal/middleware" // JWT, role, rate limit and sanitizer middleware
	"github.com/iliyamo/auth-session-service/internal/model"
	"github.com/iliyamo/auth-session-service/internal/ratelimit"
)

// Options carries everything New needs besides the handler.
type Options struct {
	Tokens      *auth.TokenService
	Limiter     ratelimit.Limiter
	RateLimit   config.RateLimitConfig
	CORSOrigins []string
	BodyLimit   string // e.g. "1M"
	Log         zerolog.Logger
	Health      []func(context.Context) error
}

// New builds the Echo instance with the global middleware chain and all
// routes registered.
func New(a *handler.AuthHandler, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(opts.Log)

	bodyLimit := opts.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(opts.Log))
	e.Use(echomw.BodyLimit(bodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	RegisterRoutes(e, opts.Health...)
	RegisterAuth(e, a, opts)
	return e
}

// RegisterRoutes registers routes that do not require authentication. It
// exposes only the health check.
func RegisterRoutes(e *echo.Echo, checks ...func(context.Context) error) {
	e.GET("/healthz", handler.Health(checks...))
}

// RegisterAuth registers the session and account routes under /api/auth.
// Credential-exchange endpoints share the strict "auth" rate-limit class;
// everything else uses the "api" class. Every route runs its limiter before
// the sanitizer, so rejected requests are never decoded. Profile routes need
// any valid access token; user administration needs ADMIN or SUPER_ADMIN.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opts Options) {
	authLimit := middleware.RateLimit(opts.RateLimit, opts.RateLimit.Auth, opts.Limiter, opts.Log)
	apiLimit := middleware.RateLimit(opts.RateLimit, opts.RateLimit.API, opts.Limiter, opts.Log)
	clean := middleware.Sanitize()

	g := e.Group("/api/auth")

	// Token exchange; no session required.
	g.POST("/register", a.Register, authLimit, clean)
	g.POST("/login", a.Login, authLimit, clean)
	g.POST("/refresh", a.Refresh, authLimit, clean)
	g.POST("/logout", a.Logout, authLimit, clean)

	jwt := middleware.JWTAuth(opts.Tokens)
	adminOnly := middleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin)

	// Own profile.
	g.GET("/profile", a.GetProfile, apiLimit, clean, jwt)
	g.PUT("/profile", a.UpdateProfile, apiLimit, clean, jwt)

	// User administration.
	g.GET("/users", a.ListUsers, apiLimit, clean, jwt, adminOnly)
	g.POST("/users/:id/deactivate", a.DeactivateUser, apiLimit, clean, jwt, adminOnly)
}
