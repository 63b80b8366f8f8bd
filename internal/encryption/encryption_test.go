package encryption

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keyA = strings.Repeat("0a", 32)
	keyB = strings.Repeat("1b", 32)
)

func TestEncryptDecrypt(t *testing.T) {
	svc, err := NewService(keyA)
	require.NoError(t, err)

	sealed, err := svc.Encrypt([]byte("Dor crônica"))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "Dor")

	plain, err := svc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "Dor crônica", string(plain))
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	svc, err := NewService(keyA)
	require.NoError(t, err)

	a, err := svc.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := svc.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewServiceRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"zz", "abcd", strings.Repeat("0a", 16)} {
		_, err := NewService(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestNewServiceWithoutKeysGeneratesOne(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	sealed, err := svc.Encrypt([]byte("x"))
	require.NoError(t, err)
	plain, err := svc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "x", string(plain))
}

func TestRotateKeyKeepsOldCiphertextReadable(t *testing.T) {
	svc, err := NewService(keyA)
	require.NoError(t, err)
	before := svc.LastRotation()

	old, err := svc.Encrypt([]byte("before"))
	require.NoError(t, err)
	require.NoError(t, svc.RotateKey())
	assert.False(t, svc.LastRotation().Before(before))

	newer, err := svc.Encrypt([]byte("after"))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(newer)
	require.NoError(t, err)
	assert.Equal(t, byte(1), raw[0])

	plain, err := svc.Decrypt(old)
	require.NoError(t, err)
	assert.Equal(t, "before", string(plain))
}

func TestConfiguredKeyringOpensOlderVersions(t *testing.T) {
	v1, err := NewService(keyA)
	require.NoError(t, err)
	sealed, err := v1.Encrypt([]byte("history"))
	require.NoError(t, err)

	v2, err := NewService(keyA, keyB)
	require.NoError(t, err)
	plain, err := v2.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "history", string(plain))

	// The reverse needs a key v1 never had.
	newer, err := v2.Encrypt([]byte("fresh"))
	require.NoError(t, err)
	_, err = v1.Decrypt(newer)
	assert.ErrorIs(t, err, ErrUnknownKeyVersion)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	svc, err := NewService(keyA)
	require.NoError(t, err)

	_, err = svc.Decrypt("not base64!")
	assert.Error(t, err)

	_, err = svc.Decrypt("")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	_, err = svc.Decrypt(base64.StdEncoding.EncodeToString([]byte{0, 1, 2}))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	other, err := NewService(keyB)
	require.NoError(t, err)
	sealed, err := other.Encrypt([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Decrypt(sealed)
	assert.Error(t, err)
}
