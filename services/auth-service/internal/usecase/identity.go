package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/config"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/identity-gateway/shared/provider"
)

// IdentityUsecase decides which account an external identity signs in to.
type IdentityUsecase interface {
	Resolve(ctx context.Context, params ResolveIdentityParams) (*model.User, error)
}

// ResolveIdentityParams defines the parameters for resolving an external identity.
type ResolveIdentityParams struct {
	// Session is the already authenticated user, if any. The identity is linked to it.
	Session *model.User
	Profile provider.Profile
	// HasInvite allows account creation while it is globally disabled.
	HasInvite bool
}

type identityUsecase struct {
	userRepo       repository.UserRepository
	roles          *RoleAssigner
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

// NewIdentityUsecase creates a new instance of IdentityUsecase.
func NewIdentityUsecase(
	userRepo repository.UserRepository,
	roles *RoleAssigner,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) IdentityUsecase {
	return &identityUsecase{
		userRepo:       userRepo,
		roles:          roles,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (u *identityUsecase) Resolve(ctx context.Context, params ResolveIdentityParams) (*model.User, error) {
	profile := params.Profile
	if profile.ProviderName == "" || profile.ProviderUserID == "" {
		return nil, &ExternalIdentityError{Provider: profile.ProviderName, Err: provider.ErrMissingProfile}
	}

	existing, err := u.userRepo.GetUserByOAuthIdentity(ctx, profile.ProviderName, profile.ProviderUserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, &PersistenceError{Op: "get user by oauth identity", Err: err}
		}
		existing = nil
	}

	account := model.OAuthAccount{
		Provider:       profile.ProviderName,
		ProviderUserID: profile.ProviderUserID,
		Username:       profile.Email,
	}

	if params.Session != nil {
		return u.link(ctx, params.Session, existing, account)
	}

	if existing != nil {
		if !existing.IsEmailAddressVerified {
			existing.MarkEmailAddressVerified()
			if _, err := u.userRepo.SaveUser(ctx, existing); err != nil {
				return nil, storeError("save user", err)
			}
		}
		return existing, nil
	}

	if profile.Email != "" {
		owner, err := u.userRepo.GetUserByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			owner.AddOAuthAccount(account)
			owner.MarkEmailAddressVerified()
			if _, err := u.userRepo.SaveUser(ctx, owner); err != nil {
				return nil, storeError("save user", err)
			}
			u.logEvent(ctx, "linked external login to account with matching email", owner, account)
			return owner, nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, &PersistenceError{Op: "get user by email", Err: err}
		}
	}

	return u.create(ctx, profile, account, params.HasInvite)
}

// link attaches the identity to the signed in user, taking it away from any
// other account that currently holds it.
func (u *identityUsecase) link(
	ctx context.Context,
	session *model.User,
	existing *model.User,
	account model.OAuthAccount,
) (*model.User, error) {
	if existing != nil && existing.ID == session.ID {
		return session, nil
	}

	if existing != nil {
		if !existing.CanRemoveOAuthAccount(account.Provider, account.ProviderUserID) {
			return nil, ErrIdentityUnlinkable
		}
		existing.RemoveOAuthAccount(account.Provider, account.ProviderUserID)
		if _, err := u.userRepo.SaveUser(ctx, existing); err != nil {
			return nil, storeError("save user", err)
		}
		loggerFrom(ctx, u.logger).Warn().
			Str("op", "resolve_identity").
			Str("previous_user_id", existing.ID.Hex()).
			Str("user_id", session.ID.Hex()).
			Str("provider", account.Provider).
			Str("provider_user_id", account.ProviderUserID).
			Msg("reassigned external login to signed in user")
	}

	session.AddOAuthAccount(account)
	if _, err := u.userRepo.SaveUser(ctx, session); err != nil {
		return nil, storeError("save user", err)
	}
	u.logEvent(ctx, "linked external login", session, account)

	return session, nil
}

func (u *identityUsecase) create(
	ctx context.Context,
	profile provider.Profile,
	account model.OAuthAccount,
	hasInvite bool,
) (*model.User, error) {
	if !u.authServiceCfg.AccountCreationEnabled && !hasInvite {
		return nil, ErrAccountCreationDisabled
	}

	roles, err := u.roles.rolesForNewUser(ctx)
	if err != nil {
		return nil, err
	}

	fullName := profile.DisplayName
	if fullName == "" {
		fullName = profile.Email
	}

	user := &model.User{
		EmailAddress:           profile.Email,
		FullName:               fullName,
		IsActive:               true,
		IsEmailAddressVerified: true,
		Roles:                  roles,
		OrganizationIDs:        []string{},
	}
	user.AddOAuthAccount(account)

	created, err := u.userRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, storeError("create user", err)
	}

	u.logEvent(ctx, "created account from external login", created, account)
	return created, nil
}

func (u *identityUsecase) logEvent(ctx context.Context, msg string, user *model.User, account model.OAuthAccount) {
	loggerFrom(ctx, u.logger).Info().
		Str("op", "resolve_identity").
		Str("user_id", user.ID.Hex()).
		Str("provider", account.Provider).
		Str("provider_user_id", account.ProviderUserID).
		Msg(msg)
}
