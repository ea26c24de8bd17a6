package model

import (
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	RoleClient      = "client"
	RoleUser        = "user"
	RoleGlobalAdmin = "global-admin"
)

// User represents an account in the identity gateway. Password and Salt are
// either both set or both empty, as are PasswordResetToken and its expiration.
// OAuthIdentityKeys mirrors OAuthAccounts and is rewritten on every store write.
type User struct {
	ID                           bson.ObjectID  `bson:"_id,omitempty"`
	EmailAddress                 string         `bson:"email_address"`
	FullName                     string         `bson:"full_name"`
	Password                     string         `bson:"password,omitempty"`
	Salt                         string         `bson:"salt,omitempty"`
	IsActive                     bool           `bson:"is_active"`
	IsEmailAddressVerified       bool           `bson:"is_email_address_verified"`
	EmailVerificationToken       string         `bson:"email_verification_token,omitempty"`
	PasswordResetToken           string         `bson:"password_reset_token,omitempty"`
	PasswordResetTokenExpiration *time.Time     `bson:"password_reset_token_expiration,omitempty"`
	Roles                        []string       `bson:"roles"`
	OrganizationIDs              []string       `bson:"organization_ids"`
	OAuthAccounts                []OAuthAccount `bson:"oauth_accounts"`
	OAuthIdentityKeys            []string       `bson:"oauth_identity_keys,omitempty"`
	CreatedAt                    time.Time      `bson:"created_at"`
	UpdatedAt                    time.Time      `bson:"updated_at"`
}

// NormalizeEmail returns the canonical, case-insensitive form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasLocalPassword reports whether the user can sign in with a password.
func (u *User) HasLocalPassword() bool {
	return u.Password != "" && u.Salt != ""
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// AddRole grants role; granting an already held role is a no-op.
func (u *User) AddRole(role string) {
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
}

// AddOrganization adds the organization membership and reports whether it changed.
func (u *User) AddOrganization(organizationID string) bool {
	if slices.Contains(u.OrganizationIDs, organizationID) {
		return false
	}
	u.OrganizationIDs = append(u.OrganizationIDs, organizationID)
	return true
}

// MarkEmailAddressVerified verifies the email address and drops any pending verification token.
func (u *User) MarkEmailAddressVerified() {
	u.IsEmailAddressVerified = true
	u.EmailVerificationToken = ""
}

// ClearPasswordReset drops any pending password reset.
func (u *User) ClearPasswordReset() {
	u.PasswordResetToken = ""
	u.PasswordResetTokenExpiration = nil
}

// HasValidPasswordReset reports whether a reset token is pending and unexpired at now.
func (u *User) HasValidPasswordReset(now time.Time) bool {
	return u.PasswordResetToken != "" &&
		u.PasswordResetTokenExpiration != nil &&
		now.Before(*u.PasswordResetTokenExpiration)
}
