package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// LoginRateLimit is requests per second per client IP on /auth/login.
	// Zero disables the limiter.
	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT, default=5"`

	CORSOrigins []string `env:"CORS_ORIGINS, default=http://localhost:3000"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Google GoogleConfig
	Paddle PaddleConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, required"`
	Database string `env:"MONGO_DB,  default=member_portal"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_OAUTH_REDIRECT_URL, default=http://localhost:8080/auth/google/callback"`
	// VerifiedOnly rejects provider identities whose email is not verified.
	VerifiedOnly bool `env:"GOOGLE_OAUTH_VERIFIED_ONLY, default=true"`
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type PaddleConfig struct {
	ClientToken string        `env:"PADDLE_CLIENT_TOKEN, required"`
	Environment string        `env:"PADDLE_ENV, required"`
	APIKey      string        `env:"PADDLE_API_KEY, required"`
	Timeout     time.Duration `env:"PADDLE_TIMEOUT, default=10s"`
}

const (
	PaddleSandbox    = "sandbox"
	PaddleProduction = "production"
)

// Load reads configuration from environment variables using go-envconfig.
// It fails when a required secret is missing.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from the given key/value pairs.
func LoadWith(ctx context.Context, env map[string]string) (*Config, error) {
	return load(ctx, envconfig.MapLookuper(env))
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Paddle.Environment {
	case PaddleSandbox, PaddleProduction:
	default:
		return fmt.Errorf("load config: PADDLE_ENV must be %q or %q, got %q",
			PaddleSandbox, PaddleProduction, c.Paddle.Environment)
	}
	if c.LoginRateLimit < 0 {
		return fmt.Errorf("load config: LOGIN_RATE_LIMIT must not be negative")
	}
	return nil
}
