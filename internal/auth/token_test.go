package auth

import (
	"testing"
	"time"

	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

func testAccount() *models.Account {
	return &models.Account{
		ID:       "7d3b6c1e-1111-4a4a-9c9c-000000000001",
		Role:     models.RoleAdmin,
		Email:    "asha@example.com",
		Username: "asha_0a1b",
	}
}

func TestIssueSessionToken_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, "gamegate", time.Hour)

	token, expiresAt, err := tm.IssueSessionToken(testAccount())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "7d3b6c1e-1111-4a4a-9c9c-000000000001", claims.AccountID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, "asha_0a1b", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Expired(t *testing.T) {
	tm := NewTokenManager(testSecret, "gamegate", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := tm.IssueSessionToken(testAccount())
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := NewTokenManager(testSecret, "gamegate", time.Hour)
	verifier := NewTokenManager("another-secret-32-characters-long", "gamegate", time.Hour)

	token, _, err := issuer.IssueSessionToken(testAccount())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	issuer := NewTokenManager(testSecret, "someone-else", time.Hour)
	verifier := NewTokenManager(testSecret, "gamegate", time.Hour)

	token, _, err := issuer.IssueSessionToken(testAccount())
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	tm := NewTokenManager(testSecret, "gamegate", time.Hour)

	claims := &models.SessionClaims{
		AccountID: "x",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "gamegate",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	tm := NewTokenManager(testSecret, "gamegate", time.Hour)
	_, err := tm.ValidateToken("not.a.token")
	assert.Error(t, err)
}
