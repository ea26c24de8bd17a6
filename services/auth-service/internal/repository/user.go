package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
)

// UserRepository defines the interface for user-related database operations.
// Lookups return ErrNotFound when no user matches.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByPasswordResetToken(ctx context.Context, token string) (*model.User, error)
	GetUserByOAuthIdentity(ctx context.Context, provider, providerUserID string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	SaveUser(ctx context.Context, user *model.User) (*model.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email_address", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"email_address": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{{Key: "oauth_identity_keys", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"oauth_identity_keys": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "password_reset_token", Value: 1}},
			Options: options.Index().
				SetPartialFilterExpression(bson.M{"password_reset_token": bson.M{"$exists": true}}),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}

	return r.findOne(ctx, bson.M{"email_address": email})
}

func (r *userMongoRepository) GetUserByPasswordResetToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	return r.findOne(ctx, bson.M{"password_reset_token": token})
}

func (r *userMongoRepository) GetUserByOAuthIdentity(
	ctx context.Context,
	provider string,
	providerUserID string,
) (*model.User, error) {
	if provider == "" || providerUserID == "" {
		return nil, ErrNotFound
	}

	return r.findOne(ctx, bson.M{"oauth_identity_keys": model.IdentityKey(provider, providerUserID)})
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	user.EmailAddress = model.NormalizeEmail(user.EmailAddress)
	user.SyncOAuthIdentityKeys()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.db.Collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, mapError(err)
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		user.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return user, nil
}

func (r *userMongoRepository) SaveUser(ctx context.Context, user *model.User) (*model.User, error) {
	if user.ID.IsZero() {
		return nil, errors.New("cannot save user without an ID")
	}

	user.EmailAddress = model.NormalizeEmail(user.EmailAddress)
	user.SyncOAuthIdentityKeys()
	user.UpdatedAt = time.Now()

	result, err := r.db.Collection(userCollection).ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return nil, mapError(err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	return user, nil
}

func (r *userMongoRepository) CountUsers(ctx context.Context) (int64, error) {
	return r.db.Collection(userCollection).CountDocuments(ctx, bson.D{})
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := r.db.Collection(userCollection).FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, mapError(err)
	}

	return &user, nil
}
