package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXoxMjM0NTY="

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := New(testKey, zap.NewNop())
	require.NoError(t, err)

	plaintext := "my-secret-api-key-12345"
	ciphertext, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, string(ciphertext))

	decrypted, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestNewRejectsBadKeyLength(t *testing.T) {
	_, err := New("dG9vc2hvcnQ=", zap.NewNop())
	assert.Error(t, err)
}

func TestNewRejectsInvalidBase64(t *testing.T) {
	_, err := New("not-base64!!!", zap.NewNop())
	assert.Error(t, err)
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	enc, err := New(testKey, zap.NewNop())
	require.NoError(t, err)

	_, err = enc.Decrypt([]byte("short"))
	assert.Error(t, err)
}

func TestDecryptRejectsValidTagNonUTF8Plaintext(t *testing.T) {
	enc, err := New(testKey, zap.NewNop())
	require.NoError(t, err)

	invalid := string([]byte{0xff, 0xfe, 0xfd})
	ciphertext, err := enc.Encrypt(invalid)
	require.NoError(t, err)

	_, err = enc.Decrypt(ciphertext)
	assert.ErrorContains(t, err, "decryption failed")
}

func TestWarnOnWeakKeyDoesNotPanicOnNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		warnOnWeakKey(make([]byte, 32), nil)
	})
}
