package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/member-portal/docs"
	"github.com/99minutos/member-portal/internal/api/handler"
	"github.com/99minutos/member-portal/internal/api/middleware"
	"github.com/99minutos/member-portal/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Auth    ports.AuthService
	Tokens  middleware.TokenVerifier
	OAuth   ports.OAuthService // nil disables Google sign-in routes
	Billing ports.BillingService
	Health  *handler.HealthHandler

	Log            zerolog.Logger
	LoginRateLimit float64
	CORSOrigins    []string

	// Registry receives HTTP request metrics; nil uses the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	if len(d.CORSOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: d.CORSOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portal",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Auth)
	adminHandler := handler.NewAdminHandler(d.Auth)
	billingHandler := handler.NewBillingHandler(d.Billing)
	authMiddleware := middleware.Auth(d.Tokens)

	// --- Auth routes (public) ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login, middleware.LoginRateLimit(d.LoginRateLimit))
	e.POST("/auth/verify", authHandler.Verify)
	e.POST("/auth/logout", authHandler.Logout)

	if d.OAuth != nil {
		oauthHandler := handler.NewOAuthHandler(d.OAuth)
		e.GET("/auth/google/login", oauthHandler.Begin)
		e.GET("/auth/google/callback", oauthHandler.Callback)
	}

	// --- Authenticated routes ---
	v1 := e.Group("/v1", authMiddleware)
	v1.POST("/auth/refresh", authHandler.Refresh)

	v1.GET("/users/me", userHandler.Me)
	v1.PATCH("/users/me", userHandler.UpdateProfile)
	v1.PUT("/users/me/photo", userHandler.ChangePhoto)
	v1.PUT("/users/me/password", userHandler.ChangePassword)

	v1.GET("/billing/config", billingHandler.Config)
	v1.POST("/billing/checkout", billingHandler.Checkout)
	v1.POST("/billing/confirm", billingHandler.Confirm)

	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.GET("/users/:email", adminHandler.GetUser)
	admin.PUT("/users/:email/tier", adminHandler.SetTier)

	// --- Health probes (no auth required) ---
	health := d.Health
	if health == nil {
		health = handler.NewHealthHandler(nil, nil)
	}
	e.GET("/health", health.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", health.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			} else if v.Status >= 400 {
				ev = log.Warn()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
