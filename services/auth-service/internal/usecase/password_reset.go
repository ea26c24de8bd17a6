package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/config"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/identity-gateway/shared/security"
)

const passwordResetTokenBytes = 20

// PasswordResetUsecase defines the business logic for password reset token operations.
type PasswordResetUsecase interface {
	// ForgotPassword emails a reset link. Unknown emails succeed silently.
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword sets a new password using a pending, unexpired reset token.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// CancelResetPassword drops the pending reset carrying token, if any.
	CancelResetPassword(ctx context.Context, token string) error
}

type passwordResetUsecase struct {
	userRepo       repository.UserRepository
	notifier       Notifier
	hasher         *security.PasswordHasher
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
	now            func() time.Time
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	notifier Notifier,
	hasher *security.PasswordHasher,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		userRepo:       userRepo,
		notifier:       notifier,
		hasher:         hasher,
		authServiceCfg: authServiceCfg,
		logger:         logger,
		now:            time.Now,
	}
}

func (u *passwordResetUsecase) ForgotPassword(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	if email == "" {
		return newValidationError("Email address is required.")
	}

	log := loggerFrom(ctx, u.logger).With().Str("op", "forgot_password").Str("email", email).Logger()

	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// To prevent email enumeration, do not reveal that the email does not exist.
			log.Info().Msg("password reset requested for unknown email")
			return nil
		}
		log.Error().Err(err).Msg("failed to load user")
		return &PersistenceError{Op: "get user by email", Err: err}
	}

	now := u.now().UTC()
	if !user.HasValidPasswordReset(now) {
		token, err := generateToken(passwordResetTokenBytes)
		if err != nil {
			return err
		}
		expiresAt := now.Add(u.authServiceCfg.PasswordResetTokenExpiresIn)
		user.PasswordResetToken = token
		user.PasswordResetTokenExpiration = &expiresAt

		if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
			err = storeError("save user", err)
			log.Error().Err(err).Msg("failed to save password reset token")
			return err
		}
	}

	if err := u.notifier.SendPasswordReset(ctx, user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to send password reset email")
		return nil
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("password reset email sent")
	return nil
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return newValidationError("Invalid password reset token.")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	log := loggerFrom(ctx, u.logger).With().Str("op", "reset_password").Logger()

	user, err := u.userRepo.GetUserByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info().Msg("password reset with unknown token")
			return newValidationError("Invalid password reset token.")
		}
		log.Error().Err(err).Msg("failed to load user")
		return &PersistenceError{Op: "get user by password reset token", Err: err}
	}
	log = log.With().Str("user_id", user.ID.Hex()).Logger()

	if !user.HasValidPasswordReset(u.now().UTC()) {
		log.Info().Msg("password reset with expired token")
		return newValidationError("Password reset token has expired.")
	}

	user.MarkEmailAddressVerified()
	if err := setPassword(u.hasher, user, newPassword); err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return err
	}
	user.ClearPasswordReset()

	if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
		err = storeError("save user", err)
		log.Error().Err(err).Msg("failed to save user")
		return err
	}

	log.Info().Msg("password reset")
	return nil
}

func (u *passwordResetUsecase) CancelResetPassword(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	log := loggerFrom(ctx, u.logger).With().Str("op", "cancel_reset_password").Logger()

	user, err := u.userRepo.GetUserByPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		log.Error().Err(err).Msg("failed to load user")
		return &PersistenceError{Op: "get user by password reset token", Err: err}
	}

	user.ClearPasswordReset()
	if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
		err = storeError("save user", err)
		log.Error().Err(err).Msg("failed to save user")
		return err
	}

	log.Info().Str("user_id", user.ID.Hex()).Msg("password reset cancelled")
	return nil
}
