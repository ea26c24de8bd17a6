package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func cheapHasher() *PasswordHasher {
	return NewPasswordHasher(HasherConfig{MemoryCost: 1024, TimeCost: 1, Parallelism: 1})
}

func TestValidatePassword(t *testing.T) {
	require.ErrorIs(t, ValidatePassword("  abc  "), ErrPasswordTooShort)
	require.ErrorIs(t, ValidatePassword(strings.Repeat("a", MaxPasswordLength+1)), ErrPasswordTooLong)
	require.NoError(t, ValidatePassword("secret1"))
	require.NoError(t, ValidatePassword(strings.Repeat("a", MaxPasswordLength)))
}

func TestHashAndVerify(t *testing.T) {
	h := cheapHasher()

	salt, err := GenerateSalt()
	require.NoError(t, err)

	encoded, err := h.Hash("secret1", salt)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.Verify("secret1", salt, encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify("wrongpw", salt, encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyWithDifferentSaltFails(t *testing.T) {
	h := cheapHasher()

	salt, err := GenerateSalt()
	require.NoError(t, err)
	other, err := GenerateSalt()
	require.NoError(t, err)

	encoded, err := h.Hash("secret1", salt)
	require.NoError(t, err)

	ok, err := h.Verify("secret1", other, encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashRejectsMissingSalt(t *testing.T) {
	_, err := cheapHasher().Hash("secret1", "")
	require.ErrorIs(t, err, ErrInvalidSalt)
}

func TestGenerateSaltIsUnique(t *testing.T) {
	a, err := GenerateSalt()
	require.NoError(t, err)
	b, err := GenerateSalt()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
