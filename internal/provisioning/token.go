package provisioning

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32

// generateRegistrationToken returns a fresh base64-standard-encoded 32-byte
// random credential for a newly spawned bot.
func generateRegistrationToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("provisioning: generating registration token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// hashRegistrationToken computes the digest persisted in place of the
// plaintext token: "sha256:" || hex(sha256(token)).
func hashRegistrationToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "sha256:" + hex.EncodeToString(sum[:])
}
