package identity_test

import (
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyIsUniqueAndParseable(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		key := identity.NewKey()

		_, err := uuid.Parse(key)
		require.NoError(t, err)

		require.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func TestDeterministicKeyIsStable(t *testing.T) {
	first, err := identity.DeterministicKey("ana@example.com")
	require.NoError(t, err)

	second, err := identity.DeterministicKey("ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := identity.DeterministicKey("bea@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	_, err = uuid.Parse(first)
	require.NoError(t, err)
}

func TestDeterministicKeyRejectsEmptySeed(t *testing.T) {
	_, err := identity.DeterministicKey("")
	assert.True(t, identity.IsInvalidArgument(err))
}

func TestNewSecurityStamp(t *testing.T) {
	first := identity.NewSecurityStamp()
	second := identity.NewSecurityStamp()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
