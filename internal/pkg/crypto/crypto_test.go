package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	c, err := New(newKey(t))
	require.NoError(t, err)

	cases := []string{
		"supermercado chino de la esquina",
		"",
		"cuota 3/12 heladera Frávega",
		"émojis y acentos: café ☕",
	}
	for _, plain := range cases {
		sealed, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, sealed)

		opened, err := c.Decrypt(sealed)
		require.NoError(t, err)
		assert.Equal(t, plain, opened)
	}
}

func TestEncryptProducesDistinctEnvelopes(t *testing.T) {
	c, err := New(newKey(t))
	require.NoError(t, err)

	a, err := c.Encrypt("mismo texto")
	require.NoError(t, err)
	b, err := c.Encrypt("mismo texto")
	require.NoError(t, err)

	// Random nonce per call, ciphertexts must differ.
	assert.NotEqual(t, a, b)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	c1, err := New(newKey(t))
	require.NoError(t, err)
	c2, err := New(newKey(t))
	require.NoError(t, err)

	sealed, err := c1.Encrypt("dato sensible")
	require.NoError(t, err)

	_, err = c2.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c, err := New(newKey(t))
	require.NoError(t, err)

	for _, envelope := range []string{"", "no-base64!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := c.Decrypt(envelope)
		assert.ErrorIs(t, err, ErrDecrypt)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("not base64 at all ***")
	assert.Error(t, err)

	_, err = New(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
}
