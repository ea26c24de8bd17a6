package repository

import (
	"context"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
)

// AccessTokenRepository defines the interface for bearer token storage.
type AccessTokenRepository interface {
	CreateAccessToken(ctx context.Context, token *model.AccessToken) (*model.AccessToken, error)
	GetAccessToken(ctx context.Context, id string) (*model.AccessToken, error)
	GetAccessTokensByUserID(
		ctx context.Context,
		userID bson.ObjectID,
		tokenType model.TokenType,
	) ([]model.AccessToken, error)
}

const accessTokenCollection = "tokens"

type accessTokenMongoRepository struct {
	db *mongo.Database
}

func NewAccessTokenMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) AccessTokenRepository {
	collection := db.Collection(accessTokenCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token indexes")
	}

	return &accessTokenMongoRepository{db: db}
}

func (r *accessTokenMongoRepository) CreateAccessToken(
	ctx context.Context,
	token *model.AccessToken,
) (*model.AccessToken, error) {
	if _, err := r.db.Collection(accessTokenCollection).InsertOne(ctx, token); err != nil {
		return nil, mapError(err)
	}

	return token, nil
}

func (r *accessTokenMongoRepository) GetAccessToken(ctx context.Context, id string) (*model.AccessToken, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	var token model.AccessToken
	if err := r.db.Collection(accessTokenCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&token); err != nil {
		return nil, mapError(err)
	}

	return &token, nil
}

func (r *accessTokenMongoRepository) GetAccessTokensByUserID(
	ctx context.Context,
	userID bson.ObjectID,
	tokenType model.TokenType,
) ([]model.AccessToken, error) {
	cursor, err := r.db.Collection(accessTokenCollection).Find(
		ctx,
		bson.M{"user_id": userID, "type": tokenType},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, mapError(err)
	}

	var tokens []model.AccessToken
	if err := cursor.All(ctx, &tokens); err != nil {
		return nil, mapError(err)
	}

	return tokens, nil
}
