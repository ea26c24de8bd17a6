package model

import "strings"

// OAuthAccount links a user to an identity at an external provider. The
// (Provider, ProviderUserID) pair is unique across all users.
type OAuthAccount struct {
	Provider       string `bson:"provider"`
	ProviderUserID string `bson:"provider_user_id"`
	Username       string `bson:"username,omitempty"`
}

// IdentityKey returns the key under which a provider identity is unique.
func IdentityKey(provider, providerUserID string) string {
	return strings.ToLower(provider) + ":" + providerUserID
}

// SyncOAuthIdentityKeys rebuilds OAuthIdentityKeys from OAuthAccounts.
func (u *User) SyncOAuthIdentityKeys() {
	u.OAuthIdentityKeys = nil
	for _, a := range u.OAuthAccounts {
		u.OAuthIdentityKeys = append(u.OAuthIdentityKeys, IdentityKey(a.Provider, a.ProviderUserID))
	}
}

// Matches reports whether the account is the given provider identity.
func (a OAuthAccount) Matches(provider, providerUserID string) bool {
	return strings.EqualFold(a.Provider, provider) && a.ProviderUserID == providerUserID
}

// FindOAuthAccount returns the index of the provider identity, or -1.
func (u *User) FindOAuthAccount(provider, providerUserID string) int {
	for i, a := range u.OAuthAccounts {
		if a.Matches(provider, providerUserID) {
			return i
		}
	}
	return -1
}

// AddOAuthAccount attaches the identity unless it is already attached.
func (u *User) AddOAuthAccount(account OAuthAccount) {
	account.Provider = strings.ToLower(account.Provider)
	if u.FindOAuthAccount(account.Provider, account.ProviderUserID) >= 0 {
		return
	}
	u.OAuthAccounts = append(u.OAuthAccounts, account)
}

// CanRemoveOAuthAccount reports whether detaching the identity still leaves the
// user a way to sign in.
func (u *User) CanRemoveOAuthAccount(provider, providerUserID string) bool {
	if u.HasLocalPassword() {
		return true
	}

	remaining := 0
	for _, a := range u.OAuthAccounts {
		if !a.Matches(provider, providerUserID) {
			remaining++
		}
	}
	return remaining > 0
}

// RemoveOAuthAccount detaches the identity and reports whether it was attached.
func (u *User) RemoveOAuthAccount(provider, providerUserID string) bool {
	i := u.FindOAuthAccount(provider, providerUserID)
	if i < 0 {
		return false
	}
	u.OAuthAccounts = append(u.OAuthAccounts[:i], u.OAuthAccounts[i+1:]...)
	return true
}
