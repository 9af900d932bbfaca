package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("Secret123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, Compare(hash, "Secret123"))
	assert.ErrorIs(t, Compare(hash, "secret123"), bcrypt.ErrMismatchedHashAndPassword)
	// Short inputs stay plain bcrypt.
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("Secret123")))
}

func TestHashAcceptsLongInput(t *testing.T) {
	long := strings.Repeat("A1", 40)
	require.Greater(t, len(long), MaxBytes)

	hash, err := Hash(long, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, Compare(hash, long))

	// Inputs that share the first 72 bytes must not match each other.
	assert.Error(t, Compare(hash, long[:MaxBytes]))
	assert.Error(t, Compare(hash, long+"x"))
}

func TestLimitBoundary(t *testing.T) {
	exact := strings.Repeat("b", MaxBytes)
	hash, err := Hash(exact, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte(exact)))
}
