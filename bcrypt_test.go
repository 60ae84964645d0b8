package identity_test

import (
	"testing"

	"github.com/gatherly/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	t.Parallel()

	hash, err := identity.HashSecret("sup3r-secret")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "sup3r-secret", hash)

	// Same input hashes to a different string every time.
	again, err := identity.HashSecret("sup3r-secret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again)
}

func TestHashSecretRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := identity.HashSecret("")
	assert.ErrorIs(t, err, identity.ErrNoEmptyString)
}

func TestCompareSecretAndHash(t *testing.T) {
	t.Parallel()

	hash, err := identity.HashSecret("correct horse battery staple")
	require.NoError(t, err)

	assert.NoError(t, identity.CompareSecretAndHash("correct horse battery staple", hash))

	err = identity.CompareSecretAndHash("wrong guess", hash)
	assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
}
