package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInviteIsValid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.orgs.addInvite("acme", "T", "bob@x.com")

	ok, err := env.invites.IsValid(ctx, "T")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = env.invites.IsValid(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = env.invites.IsValid(ctx, "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedeemInviteTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.orgs.addInvite("acme", "T", "someone-else@x.com")
	user := env.localUser(t, "alice@x.com", "secret1")

	require.NoError(t, env.invites.Redeem(ctx, "T", user))

	stored := env.users.get(t, user.ID)
	require.Equal(t, []string{org.ID.Hex()}, stored.OrganizationIDs)
	require.False(t, stored.IsEmailAddressVerified)
	require.Empty(t, env.orgs.invites(org.ID))

	require.NoError(t, env.invites.Redeem(ctx, "T", stored))
	require.Equal(t, []string{org.ID.Hex()}, env.users.get(t, user.ID).OrganizationIDs)
}

func TestRedeemInviteVerifiesMatchingEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.orgs.addInvite("acme", "T", "Alice@X.com")
	user := env.localUser(t, "alice@x.com", "secret1")
	user.EmailVerificationToken = "pending"
	env.users.put(user)

	require.NoError(t, env.invites.Redeem(ctx, "T", user))

	stored := env.users.get(t, user.ID)
	require.True(t, stored.IsEmailAddressVerified)
	require.Empty(t, stored.EmailVerificationToken)
}

func TestRedeemUnknownInviteIsNoop(t *testing.T) {
	env := newTestEnv(t)
	user := env.localUser(t, "alice@x.com", "secret1")

	require.NoError(t, env.invites.Redeem(context.Background(), "missing", user))
	require.Empty(t, env.users.get(t, user.ID).OrganizationIDs)
}

func TestRedeemInviteForExistingMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.orgs.addInvite("acme", "T", "")
	user := env.localUser(t, "alice@x.com", "secret1")
	user.OrganizationIDs = []string{org.ID.Hex()}
	env.users.put(user)

	require.NoError(t, env.invites.Redeem(ctx, "T", user))
	require.Equal(t, []string{org.ID.Hex()}, env.users.get(t, user.ID).OrganizationIDs)
	require.Empty(t, env.orgs.invites(org.ID))
}
