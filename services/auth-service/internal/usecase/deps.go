package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/shared/provider"
)

// RateLimiter counts attempts in wall-clock aligned fixed windows.
type RateLimiter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

// Notifier delivers account emails.
type Notifier interface {
	SendVerifyEmail(ctx context.Context, user *model.User) error
	SendPasswordReset(ctx context.Context, user *model.User) error
}

// ProviderRegistry selects an identity provider client by name.
type ProviderRegistry interface {
	Get(name string) (provider.Client, error)
}

// generateToken returns a random hex string built from n random bytes.
func generateToken(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// loggerFrom prefers the request-scoped logger carried by ctx.
func loggerFrom(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback
}
