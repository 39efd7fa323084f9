package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/gamegate/internal/auth"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/BradenHooton/gamegate/internal/services"
	pkghttp "github.com/BradenHooton/gamegate/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds session claims to the request context for testing
// authenticated endpoints
func WithAuthContext(req *http.Request, accountID, email string) *http.Request {
	claims := &models.SessionClaims{
		AccountID: accountID,
		Email:     email,
		Role:      models.RoleAdmin,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc          func(ctx context.Context, in services.RegisterInput) (*models.Account, error)
	VerifyEmailFunc       func(ctx context.Context, email, otp string) error
	RequestLoginOTPFunc   func(ctx context.Context, identifier string) error
	VerifyLoginOTPFunc    func(ctx context.Context, identifier, code string) error
	LoginWithPasswordFunc func(ctx context.Context, identifier, password string) (*services.LoginResult, error)
	GetCurrentAccountFunc func(ctx context.Context, accountID string) (*models.Account, error)
	ChangePasswordFunc    func(ctx context.Context, accountID, oldPassword, newPassword, confirm string) error
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*models.Account, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return &models.Account{ID: "acct_123", Email: in.Email}, nil
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, email, otp string) error {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, email, otp)
	}
	return nil
}

func (m *MockAuthService) RequestLoginOTP(ctx context.Context, identifier string) error {
	if m.RequestLoginOTPFunc != nil {
		return m.RequestLoginOTPFunc(ctx, identifier)
	}
	return nil
}

func (m *MockAuthService) VerifyLoginOTP(ctx context.Context, identifier, code string) error {
	if m.VerifyLoginOTPFunc != nil {
		return m.VerifyLoginOTPFunc(ctx, identifier, code)
	}
	return nil
}

func (m *MockAuthService) LoginWithPassword(ctx context.Context, identifier, password string) (*services.LoginResult, error) {
	if m.LoginWithPasswordFunc != nil {
		return m.LoginWithPasswordFunc(ctx, identifier, password)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) GetCurrentAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if m.GetCurrentAccountFunc != nil {
		return m.GetCurrentAccountFunc(ctx, accountID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAuthService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword, confirm string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, accountID, oldPassword, newPassword, confirm)
	}
	return nil
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, token, newPassword, confirm string) error
}

func (m *MockPasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

func (m *MockPasswordResetService) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword, confirm)
	}
	return nil
}

// MockGameResultService implements GameResultServiceInterface for testing
type MockGameResultService struct {
	AddFunc  func(ctx context.Context, gameID, date, resultNumber string) (*models.GameResult, error)
	ListFunc func(ctx context.Context) ([]models.GameResultGroup, error)
}

func (m *MockGameResultService) Add(ctx context.Context, gameID, date, resultNumber string) (*models.GameResult, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, gameID, date, resultNumber)
	}
	return &models.GameResult{ID: "result_123", GameID: gameID, Date: date, ResultNumber: resultNumber}, nil
}

func (m *MockGameResultService) List(ctx context.Context) ([]models.GameResultGroup, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []models.GameResultGroup{}, nil
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	HealthCheckFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}
