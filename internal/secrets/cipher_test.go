package secrets

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BlankPassphrase(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoPassphrase)

	_, err = New("   ")
	assert.ErrorIs(t, err, ErrNoPassphrase)
}

func TestCipher_RoundTrip(t *testing.T) {
	c, err := New("correct horse battery staple")
	require.NoError(t, err)

	for _, plaintext := range []string{"p1", "", "with spaces and ünïcode", strings.Repeat("x", 4096)} {
		envelope, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := c.Decrypt(envelope)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestCipher_EnvelopeShape(t *testing.T) {
	c, err := New("passphrase")
	require.NoError(t, err)

	envelope, err := c.Encrypt("secret")
	require.NoError(t, err)

	parts := strings.Split(envelope, ".")
	require.Len(t, parts, 3)

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, nonce, 12)

	tag, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, tag, 16)
}

func TestCipher_FreshNoncePerCall(t *testing.T) {
	c, err := New("passphrase")
	require.NoError(t, err)

	first, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := c.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "encrypting the same plaintext twice must not reuse a nonce")
}

func TestCipher_SamePassphraseSameKey(t *testing.T) {
	a, err := New("shared passphrase")
	require.NoError(t, err)
	b, err := New("shared passphrase")
	require.NoError(t, err)

	envelope, err := a.Encrypt("secret")
	require.NoError(t, err)

	got, err := b.Decrypt(envelope)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestDecrypt_MalformedEnvelope(t *testing.T) {
	c, err := New("passphrase")
	require.NoError(t, err)

	for _, envelope := range []string{
		"",
		"onlyonepart",
		"two.parts",
		"a.b.c.d",
		"!!!.e30=.e30=", // invalid base64 nonce
		"e30=.e30=.e30=", // decodes, but wrong component lengths
	} {
		_, err := c.Decrypt(envelope)
		assert.ErrorIs(t, err, ErrInvalidEnvelope, "envelope %q", envelope)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	a, err := New("passphrase one")
	require.NoError(t, err)
	b, err := New("passphrase two")
	require.NoError(t, err)

	envelope, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(envelope)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	c, err := New("passphrase")
	require.NoError(t, err)

	envelope, err := c.Encrypt("secret value")
	require.NoError(t, err)

	parts := strings.Split(envelope, ".")
	raw, err := base64.StdEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	raw[0] ^= 0x01
	parts[2] = base64.StdEncoding.EncodeToString(raw)

	_, err = c.Decrypt(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrAuthentication)
}
