package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.True(t, cfg.AccountCreationEnabled)
	require.Equal(t, time.Hour, cfg.PasswordResetTokenExpiresIn)
	require.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	require.Equal(t, DefaultRateLimitConfig(), cfg.RateLimit)
	require.Equal(t, "auth-service", cfg.Consul.ServiceName)
	require.Equal(t, "info", cfg.Logger.Level)
	require.Empty(t, cfg.TrustedProxies)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("AUTH_ACCOUNT_CREATION_ENABLED", "false")
	t.Setenv("AUTH_RATE_LIMIT_LOGIN_USER_MAX", "7")
	t.Setenv("AUTH_PROVIDER_GITHUB_CLIENT_ID", "gh-id")
	t.Setenv("AUTH_PROVIDER_GITHUB_CLIENT_SECRET", "gh-secret")
	t.Setenv("AUTH_ARGON2_MEMORY_KIB", "1024")
	t.Setenv("AUTH_TRUSTED_PROXIES", "10.0.0.0/8,192.0.2.10")

	cfg, err := Load()
	require.NoError(t, err)

	require.False(t, cfg.AccountCreationEnabled)
	require.EqualValues(t, 7, cfg.RateLimit.LoginUserMax)
	require.True(t, cfg.Providers.GitHub.Enabled())
	require.False(t, cfg.Providers.Google.Enabled())
	require.EqualValues(t, 1024, cfg.Argon2.MemoryCost)
	require.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.TrustedProxies)
}

func TestLoadRejectsInvalidTrustedProxy(t *testing.T) {
	t.Setenv("AUTH_TRUSTED_PROXIES", "10.0.0.0/8,not-a-cidr")

	_, err := Load()
	require.ErrorContains(t, err, "AUTH_TRUSTED_PROXIES")
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	t.Setenv("AUTH_PROVIDER_TIMEOUT", "0s")

	_, err := Load()
	require.Error(t, err)
}
