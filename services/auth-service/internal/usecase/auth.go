package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/config"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/identity-gateway/shared/provider"
	"github.com/vasapolrittideah/identity-gateway/shared/security"
)

// AuthUsecase defines the interface for authentication-related use cases.
// Token returning operations yield the caller's bearer token.
type AuthUsecase interface {
	Login(ctx context.Context, params LoginParams) (string, error)
	Signup(ctx context.Context, params SignupParams) (string, error)
	ExternalLogin(ctx context.Context, params ExternalLoginParams) (string, error)
	ChangePassword(ctx context.Context, params ChangePasswordParams) error
	RemoveExternalLogin(ctx context.Context, params RemoveExternalLoginParams) error
	IsEmailAvailable(ctx context.Context, params EmailAvailabilityParams) (bool, error)
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email       string
	Password    string
	InviteToken string
	ClientIP    string
}

// SignupParams defines the parameters for user registration.
type SignupParams struct {
	Email       string
	Name        string
	Password    string
	InviteToken string
	ClientIP    string
}

// ExternalLoginParams defines the parameters for signing in with an identity provider.
type ExternalLoginParams struct {
	Provider    string
	Code        string
	RedirectURI string
	InviteToken string
	ClientIP    string
	// Session is the signed in user, if any; the external login is linked to it.
	Session *model.User
}

// ChangePasswordParams defines the parameters for changing a local password.
type ChangePasswordParams struct {
	User            *model.User
	CurrentPassword string
	NewPassword     string
}

// RemoveExternalLoginParams defines the parameters for unlinking an external login.
type RemoveExternalLoginParams struct {
	User           *model.User
	Provider       string
	ProviderUserID string
}

// EmailAvailabilityParams defines the parameters for checking whether an email is taken.
type EmailAvailabilityParams struct {
	Email    string
	ClientIP string
	Session  *model.User
}

type authUsecase struct {
	userRepo       repository.UserRepository
	limiter        RateLimiter
	tokens         TokenUsecase
	invites        InviteUsecase
	identities     IdentityUsecase
	providers      ProviderRegistry
	notifier       Notifier
	hasher         *security.PasswordHasher
	roles          *RoleAssigner
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(
	userRepo repository.UserRepository,
	limiter RateLimiter,
	tokens TokenUsecase,
	invites InviteUsecase,
	identities IdentityUsecase,
	providers ProviderRegistry,
	notifier Notifier,
	hasher *security.PasswordHasher,
	roles *RoleAssigner,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) AuthUsecase {
	return &authUsecase{
		userRepo:       userRepo,
		limiter:        limiter,
		tokens:         tokens,
		invites:        invites,
		identities:     identities,
		providers:      providers,
		notifier:       notifier,
		hasher:         hasher,
		roles:          roles,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func loginUserKey(email string) string { return "login:user:" + email }
func loginIPKey(ip string) string      { return "login:ip:" + ip }
func signupIPKey(ip string) string     { return "signup:ip:" + ip }
func emailCheckIPKey(ip string) string { return "email-check:ip:" + ip }

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (string, error) {
	email := model.NormalizeEmail(params.Email)
	if email == "" {
		return "", newValidationError("Email address is required.")
	}
	if strings.TrimSpace(params.Password) == "" {
		return "", newValidationError("Password is required.")
	}

	log := loggerFrom(ctx, u.logger).With().
		Str("op", "login").
		Str("email", email).
		Str("ip", params.ClientIP).
		Logger()

	cfg := u.authServiceCfg.RateLimit
	userAttempts, err := u.limiter.Increment(ctx, loginUserKey(email), cfg.LoginWindow)
	if err != nil {
		log.Error().Err(err).Msg("failed to count login attempts")
		return "", &PersistenceError{Op: "count login attempts", Err: err}
	}

	var ipAttempts int64
	if params.ClientIP != "" {
		ipAttempts, err = u.limiter.Increment(ctx, loginIPKey(params.ClientIP), cfg.LoginWindow)
		if err != nil {
			log.Error().Err(err).Msg("failed to count login attempts")
			return "", &PersistenceError{Op: "count login attempts", Err: err}
		}
	}

	if userAttempts > cfg.LoginUserMax || ipAttempts > cfg.LoginIPMax {
		log.Warn().
			Int64("user_attempts", userAttempts).
			Int64("ip_attempts", ipAttempts).
			Msg("login rate limit exceeded")
		return "", ErrAuthenticationFailed
	}

	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info().Msg("login failed: unknown email")
			return "", ErrAuthenticationFailed
		}
		log.Error().Err(err).Msg("failed to load user")
		return "", &PersistenceError{Op: "get user by email", Err: err}
	}

	log = log.With().Str("user_id", user.ID.Hex()).Logger()

	switch {
	case !user.IsActive:
		log.Info().Msg("login failed: inactive account")
		return "", ErrAuthenticationFailed
	case user.Salt == "":
		log.Info().Msg("login failed: account has no local password")
		return "", ErrAuthenticationFailed
	case !checkPassword(u.hasher, user, params.Password):
		log.Info().Msg("login failed: password mismatch")
		return "", ErrAuthenticationFailed
	}

	if params.InviteToken != "" {
		if err := u.invites.Redeem(ctx, params.InviteToken, user); err != nil {
			log.Error().Err(err).Msg("failed to redeem invite")
			return "", err
		}
	}

	if err := u.limiter.Reset(ctx, loginUserKey(email)); err != nil {
		log.Warn().Err(err).Msg("failed to reset login attempts")
	}

	token, err := u.tokens.GetOrCreateAccessToken(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue access token")
		return "", err
	}

	log.Info().Msg("user logged in")
	return token, nil
}

func (u *authUsecase) Signup(ctx context.Context, params SignupParams) (string, error) {
	email := model.NormalizeEmail(params.Email)
	log := loggerFrom(ctx, u.logger).With().
		Str("op", "signup").
		Str("email", email).
		Str("ip", params.ClientIP).
		Logger()

	hasValidInvite, err := u.invites.IsValid(ctx, params.InviteToken)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve invite")
		return "", err
	}

	if !u.authServiceCfg.AccountCreationEnabled && !hasValidInvite {
		log.Info().Msg("signup rejected: account creation disabled")
		return "", ErrAccountCreationDisabled
	}

	name := strings.TrimSpace(params.Name)
	switch {
	case email == "":
		return "", newValidationError("Email address is required.")
	case name == "":
		return "", newValidationError("Name is required.")
	}
	if err := validatePassword(params.Password); err != nil {
		return "", err
	}

	_, err = u.userRepo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		// Signing up with a known email is treated as a login attempt.
		return u.Login(ctx, LoginParams{
			Email:       email,
			Password:    params.Password,
			InviteToken: params.InviteToken,
			ClientIP:    params.ClientIP,
		})
	case !errors.Is(err, repository.ErrNotFound):
		log.Error().Err(err).Msg("failed to load user")
		return "", &PersistenceError{Op: "get user by email", Err: err}
	}

	if !hasValidInvite && params.ClientIP != "" {
		cfg := u.authServiceCfg.RateLimit
		attempts, err := u.limiter.Increment(ctx, signupIPKey(params.ClientIP), cfg.SignupWindow)
		if err != nil {
			log.Error().Err(err).Msg("failed to count signup attempts")
			return "", &PersistenceError{Op: "count signup attempts", Err: err}
		}
		if attempts > cfg.SignupIPMax {
			log.Warn().Int64("ip_attempts", attempts).Msg("signup rate limit exceeded")
			return "", ErrAuthenticationFailed
		}
	}

	roles, err := u.roles.rolesForNewUser(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to assign roles")
		return "", err
	}

	verificationToken, err := generateToken(accessTokenBytes)
	if err != nil {
		return "", err
	}

	user := &model.User{
		EmailAddress:           email,
		FullName:               name,
		IsActive:               true,
		EmailVerificationToken: verificationToken,
		Roles:                  roles,
		OrganizationIDs:        []string{},
		OAuthAccounts:          []model.OAuthAccount{},
	}
	if err := setPassword(u.hasher, user, params.Password); err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return "", err
	}

	user, err = u.userRepo.CreateUser(ctx, user)
	if errors.Is(err, repository.ErrDuplicateKey) {
		// A concurrent signup created the account first.
		log.Info().Msg("signup lost creation race, retrying as login")
		return u.Login(ctx, LoginParams{
			Email:       email,
			Password:    params.Password,
			InviteToken: params.InviteToken,
			ClientIP:    params.ClientIP,
		})
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to create user")
		return "", &PersistenceError{Op: "create user", Err: err}
	}
	log = log.With().Str("user_id", user.ID.Hex()).Logger()

	if params.InviteToken != "" {
		if err := u.invites.Redeem(ctx, params.InviteToken, user); err != nil {
			log.Error().Err(err).Msg("failed to redeem invite")
			return "", err
		}
	}

	if !user.IsEmailAddressVerified {
		if err := u.notifier.SendVerifyEmail(ctx, user); err != nil {
			log.Error().Err(err).Msg("failed to send verification email")
		}
	}

	token, err := u.tokens.GetOrCreateAccessToken(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue access token")
		return "", err
	}

	log.Info().Strs("roles", user.Roles).Msg("user signed up")
	return token, nil
}

func (u *authUsecase) ExternalLogin(ctx context.Context, params ExternalLoginParams) (string, error) {
	providerName := strings.ToLower(strings.TrimSpace(params.Provider))
	log := loggerFrom(ctx, u.logger).With().
		Str("op", "external_login").
		Str("provider", providerName).
		Str("ip", params.ClientIP).
		Logger()

	client, err := u.providers.Get(providerName)
	if err != nil {
		log.Info().Err(err).Msg("unknown identity provider")
		return "", err
	}

	if strings.TrimSpace(params.Code) == "" {
		return "", newValidationError("Authorization code is required.")
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, u.authServiceCfg.ProviderTimeout)
	profile, err := client.ExchangeCode(exchangeCtx, params.Code, params.RedirectURI)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("identity provider exchange failed")
		return "", &ExternalIdentityError{Provider: providerName, Err: err}
	}
	if profile == nil {
		return "", &ExternalIdentityError{Provider: providerName, Err: provider.ErrMissingProfile}
	}
	if u.authServiceCfg.RequireExternalEmail && profile.Email == "" {
		log.Warn().Str("provider_user_id", profile.ProviderUserID).Msg("identity provider returned no email")
		return "", &ExternalIdentityError{Provider: providerName, Err: errors.New("profile has no email address")}
	}
	profile.ProviderName = providerName

	hasValidInvite, err := u.invites.IsValid(ctx, params.InviteToken)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve invite")
		return "", err
	}

	user, err := u.identities.Resolve(ctx, ResolveIdentityParams{
		Session:   params.Session,
		Profile:   *profile,
		HasInvite: hasValidInvite,
	})
	if err != nil {
		var perr *PersistenceError
		if errors.As(err, &perr) {
			log.Error().Err(err).Msg("failed to resolve external identity")
		} else {
			log.Info().Err(err).Msg("external identity rejected")
		}
		return "", err
	}
	log = log.With().Str("user_id", user.ID.Hex()).Logger()

	if !user.IsActive {
		log.Info().Msg("external login failed: inactive account")
		return "", ErrAuthenticationFailed
	}

	if params.InviteToken != "" {
		if err := u.invites.Redeem(ctx, params.InviteToken, user); err != nil {
			log.Error().Err(err).Msg("failed to redeem invite")
			return "", err
		}
	}

	token, err := u.tokens.GetOrCreateAccessToken(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue access token")
		return "", err
	}

	log.Info().Msg("user logged in with external identity")
	return token, nil
}

func (u *authUsecase) ChangePassword(ctx context.Context, params ChangePasswordParams) error {
	user := params.User
	log := loggerFrom(ctx, u.logger).With().
		Str("op", "change_password").
		Str("user_id", user.ID.Hex()).
		Logger()

	if err := validatePassword(params.NewPassword); err != nil {
		return err
	}

	if user.HasLocalPassword() && !checkPassword(u.hasher, user, params.CurrentPassword) {
		log.Info().Msg("change password rejected: current password mismatch")
		return newValidationError("The current password is incorrect.")
	}

	if err := setPassword(u.hasher, user, params.NewPassword); err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return err
	}
	user.ClearPasswordReset()

	if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
		err = storeError("save user", err)
		log.Error().Err(err).Msg("failed to save user")
		return err
	}

	log.Info().Msg("password changed")
	return nil
}

func (u *authUsecase) RemoveExternalLogin(ctx context.Context, params RemoveExternalLoginParams) error {
	user := params.User
	providerName := strings.ToLower(strings.TrimSpace(params.Provider))
	log := loggerFrom(ctx, u.logger).With().
		Str("op", "remove_external_login").
		Str("user_id", user.ID.Hex()).
		Str("provider", providerName).
		Logger()

	if providerName == "" || params.ProviderUserID == "" ||
		user.FindOAuthAccount(providerName, params.ProviderUserID) < 0 {
		return newValidationError("Invalid provider name or provider user id.")
	}

	if !user.CanRemoveOAuthAccount(providerName, params.ProviderUserID) {
		return newValidationError("You must set a local password before removing your last external login.")
	}

	user.RemoveOAuthAccount(providerName, params.ProviderUserID)
	if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
		err = storeError("save user", err)
		log.Error().Err(err).Msg("failed to save user")
		return err
	}

	log.Info().Msg("removed external login")
	return nil
}

func (u *authUsecase) IsEmailAvailable(ctx context.Context, params EmailAvailabilityParams) (bool, error) {
	email := model.NormalizeEmail(params.Email)
	if email == "" {
		return true, nil
	}

	if s := params.Session; s != nil && s.IsEmailAddressVerified && s.EmailAddress == email {
		return true, nil
	}

	log := loggerFrom(ctx, u.logger).With().
		Str("op", "check_email").
		Str("ip", params.ClientIP).
		Logger()

	if params.ClientIP != "" {
		cfg := u.authServiceCfg.RateLimit
		attempts, err := u.limiter.Increment(ctx, emailCheckIPKey(params.ClientIP), cfg.EmailCheckWindow)
		if err != nil {
			log.Error().Err(err).Msg("failed to count email checks")
			return false, nil
		}
		if attempts > cfg.EmailCheckIPMax {
			log.Warn().Int64("ip_attempts", attempts).Msg("email check rate limit exceeded")
			return false, nil
		}
	}

	_, err := u.userRepo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, repository.ErrNotFound):
		return true, nil
	default:
		log.Error().Err(err).Msg("failed to load user")
		return false, &PersistenceError{Op: "get user by email", Err: err}
	}
}
