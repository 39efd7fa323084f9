package services

import (
	"context"
	"fmt"

	"github.com/BradenHooton/gamegate/internal/models"
	pkgauth "github.com/BradenHooton/gamegate/pkg/auth"
)

const maxHandleAttempts = 5

type usernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// generateUniqueHandle derives a username from email. Suffixed candidates are
// tried first; if all of them are taken a random fallback is used, and a
// collision on the fallback is reported as models.ErrHandleUnavailable.
func generateUniqueHandle(ctx context.Context, repo usernameChecker, email string) (string, error) {
	base, err := pkgauth.HandleBase(email)
	if err != nil {
		return "", fmt.Errorf("derive username: %w", err)
	}

	for attempt := 0; attempt < maxHandleAttempts; attempt++ {
		candidate, err := pkgauth.HandleCandidate(base, attempt)
		if err != nil {
			return "", fmt.Errorf("derive username: %w", err)
		}
		taken, err := repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}

	fallback := pkgauth.FallbackHandle()
	taken, err := repo.UsernameExists(ctx, fallback)
	if err != nil {
		return "", fmt.Errorf("check username: %w", err)
	}
	if taken {
		return "", models.ErrHandleUnavailable
	}
	return fallback, nil
}
