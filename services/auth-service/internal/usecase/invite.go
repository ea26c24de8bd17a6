package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/repository"
)

// InviteUsecase redeems organization invites.
type InviteUsecase interface {
	// IsValid reports whether token belongs to a pending invite of a real organization.
	IsValid(ctx context.Context, token string) (bool, error)

	// Redeem joins user to the organization owning token and consumes the
	// invite. Unknown tokens are a no-op. user is updated in place.
	Redeem(ctx context.Context, token string, user *model.User) error
}

type inviteUsecase struct {
	orgRepo  repository.OrganizationRepository
	userRepo repository.UserRepository
	logger   *zerolog.Logger
}

// NewInviteUsecase creates a new instance of InviteUsecase.
func NewInviteUsecase(
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	logger *zerolog.Logger,
) InviteUsecase {
	return &inviteUsecase{
		orgRepo:  orgRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

func (u *inviteUsecase) IsValid(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	_, err := u.orgRepo.GetOrganizationByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, &PersistenceError{Op: "get organization by invite", Err: err}
	}

	return true, nil
}

func (u *inviteUsecase) Redeem(ctx context.Context, token string, user *model.User) error {
	log := loggerFrom(ctx, u.logger)
	if token == "" {
		return nil
	}

	org, err := u.orgRepo.GetOrganizationByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info().Str("op", "redeem_invite").Str("user_id", user.ID.Hex()).Msg("invite token did not resolve to an organization")
			return nil
		}
		return &PersistenceError{Op: "get organization by invite", Err: err}
	}

	invite, ok := org.FindInvite(token)
	if !ok {
		return nil
	}

	changed := false
	if invite.MatchesEmail(user.EmailAddress) && !user.IsEmailAddressVerified {
		user.MarkEmailAddressVerified()
		changed = true
	}
	if user.AddOrganization(org.ID.Hex()) {
		changed = true
	}

	if changed {
		if _, err := u.userRepo.SaveUser(ctx, user); err != nil {
			return storeError("save user", err)
		}
	}

	if err := u.orgRepo.RemoveInvite(ctx, org.ID, token); err != nil {
		return &PersistenceError{Op: "remove invite", Err: err}
	}

	log.Info().
		Str("op", "redeem_invite").
		Str("user_id", user.ID.Hex()).
		Str("organization_id", org.ID.Hex()).
		Msg("redeemed organization invite")

	return nil
}
