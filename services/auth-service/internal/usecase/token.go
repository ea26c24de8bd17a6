package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/repository"
)

const accessTokenBytes = 20

// TokenUsecase issues and resolves opaque bearer tokens.
type TokenUsecase interface {
	// GetOrCreateAccessToken returns an existing valid access token for the user,
	// or creates one. Concurrent first calls for a user may each create a token.
	GetOrCreateAccessToken(ctx context.Context, userID bson.ObjectID) (string, error)

	// Authenticate resolves a bearer token to an active user.
	Authenticate(ctx context.Context, tokenID string) (*model.User, error)
}

type tokenUsecase struct {
	tokenRepo repository.AccessTokenRepository
	userRepo  repository.UserRepository
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewTokenUsecase creates a new instance of TokenUsecase.
func NewTokenUsecase(
	tokenRepo repository.AccessTokenRepository,
	userRepo repository.UserRepository,
	logger *zerolog.Logger,
) TokenUsecase {
	return &tokenUsecase{
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
		logger:    logger,
		now:       time.Now,
	}
}

func (u *tokenUsecase) GetOrCreateAccessToken(ctx context.Context, userID bson.ObjectID) (string, error) {
	now := u.now().UTC()

	tokens, err := u.tokenRepo.GetAccessTokensByUserID(ctx, userID, model.TokenTypeAccess)
	if err != nil {
		return "", &PersistenceError{Op: "get access tokens", Err: err}
	}

	for _, t := range tokens {
		if t.IsValid(now) {
			return t.ID, nil
		}
	}

	id, err := generateToken(accessTokenBytes)
	if err != nil {
		return "", err
	}

	token, err := u.tokenRepo.CreateAccessToken(ctx, &model.AccessToken{
		ID:        id,
		UserID:    userID,
		Type:      model.TokenTypeAccess,
		CreatedAt: now,
	})
	if err != nil {
		return "", storeError("create access token", err)
	}

	loggerFrom(ctx, u.logger).Debug().Str("user_id", userID.Hex()).Msg("issued access token")
	return token.ID, nil
}

func (u *tokenUsecase) Authenticate(ctx context.Context, tokenID string) (*model.User, error) {
	if tokenID == "" {
		return nil, ErrAuthenticationFailed
	}

	token, err := u.tokenRepo.GetAccessToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, &PersistenceError{Op: "get access token", Err: err}
	}

	if token.Type != model.TokenTypeAccess || !token.IsValid(u.now().UTC()) {
		return nil, ErrAuthenticationFailed
	}

	user, err := u.userRepo.GetUser(ctx, token.UserID.Hex())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, &PersistenceError{Op: "get user", Err: err}
	}

	if !user.IsActive {
		return nil, ErrAuthenticationFailed
	}

	return user, nil
}
