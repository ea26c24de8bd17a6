package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type TokenType string

const TokenTypeAccess TokenType = "access"

// AccessToken is an opaque bearer token. The ID is also the bearer secret.
type AccessToken struct {
	ID        string        `bson:"_id"`
	UserID    bson.ObjectID `bson:"user_id"`
	Type      TokenType     `bson:"type"`
	CreatedAt time.Time     `bson:"created_at"`
	ExpiresAt *time.Time    `bson:"expires_at,omitempty"`
}

// IsValid reports whether the token may still be used at now.
func (t *AccessToken) IsValid(now time.Time) bool {
	return t.ExpiresAt == nil || t.ExpiresAt.After(now)
}
