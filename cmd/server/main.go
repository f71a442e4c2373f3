// Command server runs the member portal HTTP API.
//
// @title                       Member Portal API
// @version                     1.0
// @description                 Accounts, sessions, Google sign-in and subscription checkout for the member portal.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the session token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/member-portal/internal/api"
	"github.com/99minutos/member-portal/internal/api/handler"
	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/service"
	"github.com/99minutos/member-portal/internal/infrastructure/config"
	mongodb "github.com/99minutos/member-portal/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/member-portal/internal/infrastructure/db/redis"
	"github.com/99minutos/member-portal/internal/infrastructure/oauth"
	"github.com/99minutos/member-portal/internal/infrastructure/payment"
	"github.com/99minutos/member-portal/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger level comes from config, so fall back to a bare logger.
		bare := zerolog.New(os.Stderr)
		bare.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.OptionsFor(cfg.Env, cfg.LogLevel, "member-portal"))

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "member-portal",
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongodb.Disconnect(mongoClient, 5*time.Second); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	tokens, err := service.NewJWTService(cfg.JWTSecret)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(
		users,
		service.NewBcryptHasher(service.PasswordCost),
		tokens,
		redisdb.NewViewInvalidator(rdb),
		logger.Component("auth"),
	)

	paddle, err := payment.NewPaddleProvider(cfg.Paddle.APIKey, cfg.Paddle.Environment, cfg.Paddle.Timeout)
	if err != nil {
		return err
	}
	billingService := service.NewBillingService(
		authService,
		paddle,
		domain.DefaultPlanCatalog(),
		cfg.Paddle.ClientToken,
		cfg.Paddle.Environment,
		logger.Component("billing"),
	)

	deps := api.Deps{
		Auth:           authService,
		Tokens:         tokens,
		Billing:        billingService,
		Health:         handler.NewHealthHandler(db, rdb),
		Log:            logger.Component("http"),
		LoginRateLimit: cfg.LoginRateLimit,
		CORSOrigins:    cfg.CORSOrigins,
	}

	if cfg.Google.Enabled() {
		google := oauth.NewGoogleProvider(oauth.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
		deps.OAuth = service.NewOAuthService(
			authService,
			google,
			redisdb.NewOAuthStateStore(rdb),
			cfg.Google.VerifiedOnly,
			logger.Component("oauth"),
		)
	} else {
		log.Warn().Msg("google sign-in disabled: GOOGLE_OAUTH_CLIENT_ID/SECRET not set")
	}

	e := api.NewRouter(deps)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
