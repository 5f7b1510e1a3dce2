package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashArgon2RoundTrip(t *testing.T) {
	hash, err := HashArgon2("s3cret")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$")

	require.True(t, VerifyArgon2("s3cret", hash))
	require.False(t, VerifyArgon2("wrong", hash))
}

func TestHashArgon2UniqueSalts(t *testing.T) {
	a, err := HashArgon2("same")
	require.NoError(t, err)
	b, err := HashArgon2("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyArgon2MalformedHash(t *testing.T) {
	require.False(t, VerifyArgon2("x", "not-a-hash"))
	require.False(t, VerifyArgon2("x", "$argon2id$v=19$m=65536,t=1,p=4$bad"))
}

func TestEncryptTokenRoundTrip(t *testing.T) {
	key := DeriveKey("test-secret")

	enc, err := EncryptToken("refresh-token-value", key)
	require.NoError(t, err)
	require.NotEqual(t, "refresh-token-value", enc)

	plain, err := DecryptToken(enc, key)
	require.NoError(t, err)
	require.Equal(t, "refresh-token-value", plain)
}

func TestDecryptTokenWrongKey(t *testing.T) {
	enc, err := EncryptToken("value", DeriveKey("key-one"))
	require.NoError(t, err)

	_, err = DecryptToken(enc, DeriveKey("key-two"))
	require.Error(t, err)
}
