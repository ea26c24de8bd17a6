package repository

import (
	"context"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/identity-gateway/services/auth-service/internal/model"
)

// OrganizationRepository defines the organization operations needed to redeem invites.
type OrganizationRepository interface {
	GetOrganizationByInviteToken(ctx context.Context, token string) (*model.Organization, error)
	// RemoveInvite deletes the invite carrying token. Removing an invite that is
	// already gone is not an error.
	RemoveInvite(ctx context.Context, organizationID bson.ObjectID, token string) error
}

const organizationCollection = "organizations"

type organizationMongoRepository struct {
	db *mongo.Database
}

func NewOrganizationMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) OrganizationRepository {
	collection := db.Collection(organizationCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "invites.token", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"invites.token": bson.M{"$exists": true}}),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create organization indexes")
	}

	return &organizationMongoRepository{db: db}
}

func (r *organizationMongoRepository) GetOrganizationByInviteToken(
	ctx context.Context,
	token string,
) (*model.Organization, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	var org model.Organization
	err := r.db.Collection(organizationCollection).FindOne(ctx, bson.M{"invites.token": token}).Decode(&org)
	if err != nil {
		return nil, mapError(err)
	}

	return &org, nil
}

func (r *organizationMongoRepository) RemoveInvite(
	ctx context.Context,
	organizationID bson.ObjectID,
	token string,
) error {
	_, err := r.db.Collection(organizationCollection).UpdateOne(
		ctx,
		bson.M{"_id": organizationID},
		bson.M{"$pull": bson.M{"invites": bson.M{"token": token}}},
	)
	return mapError(err)
}
