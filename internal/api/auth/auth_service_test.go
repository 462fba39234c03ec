package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

func TestHash(t *testing.T) {
	service := NewPasswordService(bcrypt.MinCost)

	t.Run("FreshSaltEachCall", func(t *testing.T) {
		first, err := service.Hash("right-password")
		require.NoError(t, err)
		second, err := service.Hash("right-password")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.NotContains(t, first, "right-password")
	})

	t.Run("CostEmbedded", func(t *testing.T) {
		hashed, err := service.Hash("pw")
		require.NoError(t, err)
		cost, err := bcrypt.Cost([]byte(hashed))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.MinCost, cost)
	})

	t.Run("TooLong", func(t *testing.T) {
		_, err := service.Hash(strings.Repeat("x", 73))
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestVerify(t *testing.T) {
	service := NewPasswordService(bcrypt.MinCost)
	hashed, err := service.Hash("right-password")
	require.NoError(t, err)

	assert.True(t, service.Verify("right-password", hashed))
	assert.False(t, service.Verify("wrong-password", hashed))
	assert.False(t, service.Verify("right-password", "not-a-bcrypt-hash"))

	// A hash made at a different cost still verifies.
	other := NewPasswordService(bcrypt.MinCost + 1)
	assert.True(t, other.Verify("right-password", hashed))
}

func TestNewPasswordService_CostBounds(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordService(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordService(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewPasswordService(12).cost)
}
