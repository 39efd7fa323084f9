package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUniqueHandle_FirstCandidateFree(t *testing.T) {
	repo := &MockAccountRepository{}

	handle, err := generateUniqueHandle(context.Background(), repo, "John.Doe+test@example.com")
	require.NoError(t, err)
	assert.Regexp(t, `^johndoetes_[0-9a-f]{4}$`, handle)
}

func TestGenerateUniqueHandle_RetriesWithLongerSuffix(t *testing.T) {
	calls := 0
	repo := &MockAccountRepository{
		UsernameExistsFunc: func(_ context.Context, _ string) (bool, error) {
			calls++
			return calls == 1, nil
		},
	}

	handle, err := generateUniqueHandle(context.Background(), repo, "asha@example.com")
	require.NoError(t, err)
	assert.Regexp(t, `^asha_[0-9a-f]{6}$`, handle)
	assert.Equal(t, 2, calls)
}

func TestGenerateUniqueHandle_FallsBackAfterFiveCollisions(t *testing.T) {
	var seen []string
	repo := &MockAccountRepository{
		UsernameExistsFunc: func(_ context.Context, username string) (bool, error) {
			seen = append(seen, username)
			return !strings.HasPrefix(username, "u_"), nil
		},
	}

	handle, err := generateUniqueHandle(context.Background(), repo, "asha@example.com")
	require.NoError(t, err)
	assert.Regexp(t, `^u_[0-9a-f]{16}$`, handle)
	assert.Len(t, seen, 6)
}

func TestGenerateUniqueHandle_FallbackCollision(t *testing.T) {
	repo := &MockAccountRepository{
		UsernameExistsFunc: func(context.Context, string) (bool, error) { return true, nil },
	}

	_, err := generateUniqueHandle(context.Background(), repo, "asha@example.com")
	assert.ErrorIs(t, err, models.ErrHandleUnavailable)
}

func TestGenerateUniqueHandle_StoreError(t *testing.T) {
	repo := &MockAccountRepository{
		UsernameExistsFunc: func(context.Context, string) (bool, error) {
			return false, errors.New("connection reset")
		},
	}

	_, err := generateUniqueHandle(context.Background(), repo, "asha@example.com")
	assert.ErrorContains(t, err, "connection reset")
}
