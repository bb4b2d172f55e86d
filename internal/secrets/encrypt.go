// Package secrets implements the Secrets Envelope: AES-256-GCM encryption of
// bot LLM API keys at rest. Grounded on the teacher's internal/secrets
// package shape (Init + Encryptor with a base64-encoded 32-byte key), with
// the wire format and key-entropy sanity check carried over from this
// system's previous, non-Go implementation.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const nonceSize = 12

// Encryptor performs AES-256-GCM encryption and decryption of secret
// material. Unlike the teacher's string-oriented encryptor, Encrypt/Decrypt
// here operate on raw bytes since ciphertext is stored in a BYTEA column
// rather than a text field.
type Encryptor struct {
	key []byte
}

// New builds an Encryptor from a base64-encoded 32-byte AES-256 key. It logs
// (but does not fail on) keys that look accidentally weak — spec.md treats
// this as an operator warning, not a startup-blocking validation error.
func New(keyBase64 string, logger *zap.Logger) (*Encryptor, error) {
	key, err := decodeKey(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("secrets: invalid encryption key: %w", err)
	}
	warnOnWeakKey(key, logger)
	return &Encryptor{key: key}, nil
}

func decodeKey(keyBase64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (AES-256), got %d", len(key))
	}
	return key, nil
}

// Encrypt returns nonce || ciphertext || tag as a single byte slice.
func (e *Encryptor) Encrypt(plaintext string) ([]byte, error) {
	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("secrets: generating nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt reverses Encrypt.
func (e *Encryptor) Decrypt(ciphertext []byte) (string, error) {
	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("secrets: ciphertext too short")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("secrets: decryption failed: %w", err)
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("secrets: decryption failed: plaintext is not valid UTF-8")
	}
	return string(plaintext), nil
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("secrets: cipher error: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: GCM error: %w", err)
	}
	return gcm, nil
}

// warnOnWeakKey runs the same heuristics this system's previous
// implementation used to flag operator error at startup: all-zero keys,
// uniform-byte keys, low unique-byte ratios, and keys that look like
// printable dictionary words. None of these block startup — they only log.
func warnOnWeakKey(key []byte, logger *zap.Logger) {
	if logger == nil {
		return
	}

	allSame := true
	first := key[0]
	for _, b := range key {
		if b != first {
			allSame = false
			break
		}
	}
	if allSame {
		if first == 0 {
			logger.Warn("encryption key is all zeros, this is extremely insecure")
		} else {
			logger.Warn("encryption key has uniform byte values, this is extremely insecure")
		}
		return
	}

	unique := make(map[byte]struct{}, len(key))
	for _, b := range key {
		unique[b] = struct{}{}
	}
	entropyRatio := float64(len(unique)) / float64(len(key))
	if entropyRatio < 0.5 {
		logger.Warn("encryption key has low entropy, consider using a stronger key",
			zap.Float64("unique_byte_ratio", entropyRatio))
	}

	if printableOnly(key) {
		lower := strings.ToLower(string(key))
		for _, word := range []string{"password", "secret", "123", "key"} {
			if strings.Contains(lower, word) {
				logger.Warn("encryption key appears to contain a dictionary word or common phrase")
				break
			}
		}
	}
}

func printableOnly(key []byte) bool {
	for _, b := range key {
		if !(b >= 0x20 && b < 0x7f) && b != '\t' && b != '\n' && b != '\r' {
			return false
		}
	}
	return true
}
