package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ResetTokenBytes is the entropy of a raw password reset token.
const ResetTokenBytes = 32

// GenerateResetToken returns a raw reset token (hex) and the digest to store.
func GenerateResetToken() (raw, digest string, err error) {
	raw, err = RandomHex(ResetTokenBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return raw, DigestToken(raw), nil
}

// DigestToken returns the hex SHA-256 digest of a raw token.
func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
