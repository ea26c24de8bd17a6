package model

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Organization is the part of a tenant organization the gateway reads: its
// pending invites. Invites are removed once redeemed.
type Organization struct {
	ID      bson.ObjectID `bson:"_id,omitempty"`
	Name    string        `bson:"name"`
	Invites []Invite      `bson:"invites"`
}

// Invite grants organization membership to whoever redeems Token.
type Invite struct {
	Token        string `bson:"token"`
	EmailAddress string `bson:"email_address"`
}

// FindInvite returns the invite carrying token.
func (o *Organization) FindInvite(token string) (Invite, bool) {
	for _, inv := range o.Invites {
		if inv.Token == token {
			return inv, true
		}
	}
	return Invite{}, false
}

// MatchesEmail reports whether the invite was addressed to email.
func (i Invite) MatchesEmail(email string) bool {
	return i.EmailAddress != "" && strings.EqualFold(strings.TrimSpace(i.EmailAddress), strings.TrimSpace(email))
}
