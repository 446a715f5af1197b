package security

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	decoded, err := base64.StdEncoding.DecodeString(hash)
	require.NoError(t, err)
	assert.Len(t, decoded, SaltLength+KeyLength)
}

func TestHashPasswordSaltUniqueness(t *testing.T) {
	first, err := HashPassword("same password")
	require.NoError(t, err)
	second, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each hash should carry a fresh salt")
	assert.True(t, VerifyPassword("same password", first))
	assert.True(t, VerifyPassword("same password", second))
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("s3cret", hash))
	assert.False(t, VerifyPassword("S3cret", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("s3cret", ""))
	assert.False(t, VerifyPassword("s3cret", "not base64!"))
	assert.False(t, VerifyPassword("s3cret", base64.StdEncoding.EncodeToString([]byte("short"))))
}
