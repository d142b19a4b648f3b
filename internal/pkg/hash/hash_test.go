package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost, "pepper")

	hashed, err := h.Hash("Secret123!")
	require.NoError(t, err)

	assert.True(t, h.Verify(string(hashed), "Secret123!"))
	assert.False(t, h.Verify(string(hashed), "secret123!"))
	assert.False(t, NewBcrypt(bcrypt.MinCost, "other").Verify(string(hashed), "Secret123!"))
}

func TestBcrypt_TooLong(t *testing.T) {
	_, err := NewBcrypt(bcrypt.MinCost, "").Hash(strings.Repeat("a", 73))

	assert.Error(t, err)
}

func TestNewBcrypt_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(0, "").cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(99, "").cost)
}

func TestHMACSHA256(t *testing.T) {
	h, err := NewHMACSHA256("secret")
	require.NoError(t, err)

	first, err := h.Hash("123456")
	require.NoError(t, err)
	second, err := h.Hash("123456")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.True(t, h.Verify(string(first), "123456"))
	assert.False(t, h.Verify(string(first), "123457"))

	h2, err := NewHMACSHA256("another")
	require.NoError(t, err)
	other, err := h2.Hash("123456")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestNewHMACSHA256_BlankSecret(t *testing.T) {
	for _, secret := range []string{"", "   "} {
		_, err := NewHMACSHA256(secret)
		assert.ErrorIs(t, err, ErrEmptySecret)
	}
}
