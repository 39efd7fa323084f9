package auth

import (
	"strings"

	"github.com/google/uuid"
)

const handleBaseMaxLen = 10

// HandleBase derives the stem of a username from an email's local part:
// lower-case alphanumerics only, at most ten characters.
func HandleBase(email string) (string, error) {
	local, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")

	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == handleBaseMaxLen {
				break
			}
		}
	}
	if b.Len() > 0 {
		return b.String(), nil
	}

	suffix, err := RandomHex(2)
	if err != nil {
		return "", err
	}
	return "user" + suffix, nil
}

// HandleCandidate appends a random suffix to base. The first attempt uses a
// shorter suffix.
func HandleCandidate(base string, attempt int) (string, error) {
	n := 3
	if attempt == 0 {
		n = 2
	}
	suffix, err := RandomHex(n)
	if err != nil {
		return "", err
	}
	return base + "_" + suffix, nil
}

// FallbackHandle is used once every suffixed candidate has collided.
func FallbackHandle() string {
	return "u_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
