package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vasapolrittideah/identity-gateway/shared/discovery"
	"github.com/vasapolrittideah/identity-gateway/shared/logger"
	"github.com/vasapolrittideah/identity-gateway/shared/provider"
	"github.com/vasapolrittideah/identity-gateway/shared/security"
	"github.com/vasapolrittideah/identity-gateway/shared/utilities"
)

// AuthServiceConfig holds the auth service configuration.
type AuthServiceConfig struct {
	HTTPAddr       string `env:"AUTH_SERVICE_HTTP_ADDR"        envDefault:":8080"`
	GRPCHealthAddr string `env:"AUTH_SERVICE_GRPC_HEALTH_ADDR" envDefault:":9090"`

	// TrustedProxies lists the CIDRs whose X-Forwarded-For headers are honored
	// when deriving the client IP for rate limiting.
	TrustedProxies []string `env:"AUTH_TRUSTED_PROXIES" envSeparator:","`

	// AccountCreationEnabled allows sign up without an organization invite.
	AccountCreationEnabled bool `env:"AUTH_ACCOUNT_CREATION_ENABLED" envDefault:"true"`
	// RequireExternalEmail rejects external logins whose profile has no email.
	RequireExternalEmail bool `env:"AUTH_REQUIRE_EXTERNAL_EMAIL" envDefault:"false"`

	AppPasswordResetURL string `env:"AUTH_APP_PASSWORD_RESET_URL" envDefault:"http://localhost:3000/reset-password"`
	AppVerifyEmailURL   string `env:"AUTH_APP_VERIFY_EMAIL_URL"   envDefault:"http://localhost:3000/verify-email"`

	PasswordResetTokenExpiresIn time.Duration `env:"AUTH_PASSWORD_RESET_TOKEN_EXPIRES_IN" envDefault:"1h"`
	ProviderTimeout             time.Duration `env:"AUTH_PROVIDER_TIMEOUT"                envDefault:"10s"`

	RateLimit RateLimitConfig       `envPrefix:"AUTH_RATE_LIMIT_"`
	Mongo     MongoConfig           `envPrefix:"MONGO_"`
	Redis     RedisConfig           `envPrefix:"REDIS_"`
	Argon2    security.HasherConfig `envPrefix:"AUTH_ARGON2_"`
	Providers ProvidersConfig       `envPrefix:"AUTH_PROVIDER_"`
	Consul    discovery.Config
	Logger    logger.Config
}

// RateLimitConfig holds the fixed-window attempt budgets.
type RateLimitConfig struct {
	LoginUserMax     int64         `env:"LOGIN_USER_MAX"     envDefault:"5"`
	LoginIPMax       int64         `env:"LOGIN_IP_MAX"       envDefault:"15"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW"       envDefault:"15m"`
	SignupIPMax      int64         `env:"SIGNUP_IP_MAX"      envDefault:"10"`
	SignupWindow     time.Duration `env:"SIGNUP_WINDOW"      envDefault:"1h"`
	EmailCheckIPMax  int64         `env:"EMAIL_CHECK_IP_MAX" envDefault:"3"`
	EmailCheckWindow time.Duration `env:"EMAIL_CHECK_WINDOW" envDefault:"1h"`
}

// DefaultRateLimitConfig returns the default attempt budgets.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		LoginUserMax:     5,
		LoginIPMax:       15,
		LoginWindow:      15 * time.Minute,
		SignupIPMax:      10,
		SignupWindow:     time.Hour,
		EmailCheckIPMax:  3,
		EmailCheckWindow: time.Hour,
	}
}

type MongoConfig struct {
	URI      string `env:"URI"      envDefault:"mongodb://localhost:27017"`
	Database string `env:"DATABASE" envDefault:"identity"`
}

type RedisConfig struct {
	Addr      string `env:"ADDR"       envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB"         envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"auth"`
}

// ProvidersConfig holds the OAuth application credentials of each identity
// provider. Providers without credentials are not offered.
type ProvidersConfig struct {
	GitHub   provider.Credentials `envPrefix:"GITHUB_"`
	Google   provider.Credentials `envPrefix:"GOOGLE_"`
	Facebook provider.Credentials `envPrefix:"FACEBOOK_"`
	Live     provider.Credentials `envPrefix:"LIVE_"`
}

// Load parses the configuration from environment variables.
func Load() (*AuthServiceConfig, error) {
	cfg, err := env.ParseAs[AuthServiceConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse auth service config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AuthServiceConfig) validate() error {
	if c.PasswordResetTokenExpiresIn <= 0 {
		return fmt.Errorf("AUTH_PASSWORD_RESET_TOKEN_EXPIRES_IN must be positive")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("AUTH_PROVIDER_TIMEOUT must be positive")
	}
	if c.RateLimit.LoginWindow <= 0 || c.RateLimit.SignupWindow <= 0 || c.RateLimit.EmailCheckWindow <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}
	if _, err := utilities.NewClientIPResolver(c.TrustedProxies); err != nil {
		return fmt.Errorf("AUTH_TRUSTED_PROXIES: %w", err)
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("missing MONGO_URI environment variable")
	}

	return nil
}
