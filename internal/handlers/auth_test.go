package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/gamegate/internal/handlers"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/BradenHooton/gamegate/internal/services"
	pkghttp "github.com/BradenHooton/gamegate/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthHandler(svc *handlers.MockAuthService, reset *handlers.MockPasswordResetService) *handlers.AuthHandler {
	if svc == nil {
		svc = &handlers.MockAuthService{}
	}
	if reset == nil {
		reset = &handlers.MockPasswordResetService{}
	}
	return handlers.NewAuthHandler(svc, reset, testLogger())
}

func validRegisterRequest() handlers.RegisterRequest {
	return handlers.RegisterRequest{
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "asha@example.com",
		Password:  "Str0ng@Pass",
	}
}

// ============================================================================
// Register
// ============================================================================

func TestRegister_Success(t *testing.T) {
	var got services.RegisterInput
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(_ context.Context, in services.RegisterInput) (*models.Account, error) {
			got = in
			return &models.Account{ID: "acct_1"}, nil
		},
	}

	handler := newAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/api/auth/register", validRegisterRequest())

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var resp pkghttp.SuccessResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "verify OTP")
	assert.Equal(t, "asha@example.com", got.Email)
	assert.Equal(t, "Asha", got.FirstName)
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*handlers.RegisterRequest)
		field  string
	}{
		{"weak password", func(r *handlers.RegisterRequest) { r.Password = "password" }, "password"},
		{"password with disallowed symbol", func(r *handlers.RegisterRequest) { r.Password = "Str0ng#Pass" }, "password"},
		{"bad email", func(r *handlers.RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"short first name", func(r *handlers.RegisterRequest) { r.FirstName = "A" }, "firstName"},
		{"missing last name", func(r *handlers.RegisterRequest) { r.LastName = "" }, "lastName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mockAuth := &handlers.MockAuthService{
				RegisterFunc: func(context.Context, services.RegisterInput) (*models.Account, error) {
					called = true
					return nil, nil
				},
			}

			body := validRegisterRequest()
			tt.mutate(&body)

			w := httptest.NewRecorder()
			newAuthHandler(mockAuth, nil).Register(w, handlers.NewTestRequest(t, "POST", "/api/auth/register", body))

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error")
			assert.Contains(t, w.Body.String(), tt.field)
			assert.False(t, called)
		})
	}
}

func TestRegister_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader("{"))
	w := httptest.NewRecorder()

	newAuthHandler(nil, nil).Register(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestRegister_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"duplicate email", models.ErrConflict, http.StatusConflict, "conflict"},
		{"email not delivered", fmt.Errorf("%w: smtp down", models.ErrDeliveryFailed), http.StatusInternalServerError, "internal_error"},
		{"handle exhausted", models.ErrHandleUnavailable, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				RegisterFunc: func(context.Context, services.RegisterInput) (*models.Account, error) {
					return nil, tt.err
				},
			}

			w := httptest.NewRecorder()
			newAuthHandler(mockAuth, nil).Register(w, handlers.NewTestRequest(t, "POST", "/api/auth/register", validRegisterRequest()))

			handlers.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}
}

// ============================================================================
// VerifyEmail
// ============================================================================

func TestVerifyEmail(t *testing.T) {
	tests := []struct {
		name   string
		otp    string
		err    error
		status int
	}{
		{"success", "123456", nil, http.StatusOK},
		{"wrong length", "12345", nil, http.StatusBadRequest},
		{"non numeric", "12a456", nil, http.StatusBadRequest},
		{"invalid otp", "123456", models.ErrInvalidOrExpiredOTP, http.StatusBadRequest},
		{"already verified", "123456", models.ErrAlreadyVerified, http.StatusBadRequest},
		{"unknown account", "123456", models.ErrNotFoundOrUnverified, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				VerifyEmailFunc: func(context.Context, string, string) error { return tt.err },
			}
			req := handlers.NewTestRequest(t, "POST", "/api/auth/verify-email", handlers.VerifyEmailRequest{
				Email: "asha@example.com",
				OTP:   tt.otp,
			})

			w := httptest.NewRecorder()
			newAuthHandler(mockAuth, nil).VerifyEmail(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

// ============================================================================
// Login steps
// ============================================================================

func TestRequestLoginOTP_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown or unverified", models.ErrNotFoundOrUnverified, http.StatusBadRequest, "bad_request"},
		{"locked", models.ErrAccountLocked, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"delivery failed", fmt.Errorf("%w: ses", models.ErrDeliveryFailed), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				RequestLoginOTPFunc: func(context.Context, string) error { return tt.err },
			}
			req := handlers.NewTestRequest(t, "POST", "/api/auth/login/request-otp", handlers.RequestOTPRequest{Identifier: "asha"})

			w := httptest.NewRecorder()
			newAuthHandler(mockAuth, nil).RequestLoginOTP(w, req)

			handlers.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}
}

func TestRequestLoginOTP_MissingIdentifier(t *testing.T) {
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login/request-otp", handlers.RequestOTPRequest{})
	w := httptest.NewRecorder()

	newAuthHandler(nil, nil).RequestLoginOTP(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error")
}

func TestVerifyLoginOTP_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"wrong code", models.ErrInvalidOrExpiredOTP, http.StatusBadRequest},
		{"too many attempts", models.ErrTooManyOTPAttempts, http.StatusTooManyRequests},
		{"store failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				VerifyLoginOTPFunc: func(context.Context, string, string) error { return tt.err },
			}
			req := handlers.NewTestRequest(t, "POST", "/api/auth/login/verify-otp", handlers.VerifyOTPRequest{
				Identifier: "asha@example.com",
				OTP:        "123456",
			})

			w := httptest.NewRecorder()
			newAuthHandler(mockAuth, nil).VerifyLoginOTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLoginWithPassword_Success(t *testing.T) {
	expires := time.Date(2026, 1, 16, 10, 0, 0, 0, time.UTC)
	mockAuth := &handlers.MockAuthService{
		LoginWithPasswordFunc: func(_ context.Context, identifier, password string) (*services.LoginResult, error) {
			assert.Equal(t, "asha_0001", identifier)
			return &services.LoginResult{Token: "jwt-token", ExpiresAt: expires}, nil
		},
	}
	req := handlers.NewTestRequest(t, "POST", "/api/auth/login/password", handlers.LoginRequest{
		Identifier: "asha_0001",
		Password:   "Str0ng@Pass",
	})

	w := httptest.NewRecorder()
	newAuthHandler(mockAuth, nil).LoginWithPassword(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "jwt-token", resp.Token)
	assert.True(t, resp.ExpiresAt.Equal(expires))
}

func TestLoginWithPassword_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid credentials", models.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"otp step skipped", models.ErrOTPRequired, http.StatusForbidden, "forbidden"},
		{"locked", models.ErrAccountLocked, http.StatusTooManyRequests, "rate_limit_exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				LoginWithPasswordFunc: func(context.Context, string, string) (*services.LoginResult, error) {
					return nil, tt.err
				},
			}
			req := handlers.NewTestRequest(t, "POST", "/api/auth/login/password", handlers.LoginRequest{
				Identifier: "asha",
				Password:   "whatever",
			})

			w := httptest.NewRecorder()
			newAuthHandler(mockAuth, nil).LoginWithPassword(w, req)

			handlers.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}
}

// ============================================================================
// Password reset / change
// ============================================================================

func TestForgotPassword_GenericAnswer(t *testing.T) {
	var gotEmail string
	reset := &handlers.MockPasswordResetService{
		ForgotPasswordFunc: func(_ context.Context, email string) error {
			gotEmail = email
			return nil
		},
	}
	req := handlers.NewTestRequest(t, "POST", "/api/auth/forgot-password", handlers.ForgotPasswordRequest{Email: "asha@example.com"})

	w := httptest.NewRecorder()
	newAuthHandler(nil, reset).ForgotPassword(w, req)

	var resp pkghttp.SuccessResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "If the email exists, a reset link has been sent.", resp.Message)
	assert.Equal(t, "asha@example.com", gotEmail)
}

func TestResetPassword_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"bad token", models.ErrInvalidOrExpiredToken, http.StatusBadRequest},
		{"mismatch", models.ErrPasswordMismatch, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset := &handlers.MockPasswordResetService{
				ResetPasswordFunc: func(context.Context, string, string, string) error { return tt.err },
			}
			req := handlers.NewTestRequest(t, "POST", "/api/auth/reset-password", handlers.ResetPasswordRequest{
				Token:           "abc",
				NewPassword:     "N3w@Passw0rd",
				ConfirmPassword: "N3w@Passw0rd",
			})

			w := httptest.NewRecorder()
			newAuthHandler(nil, reset).ResetPassword(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestResetPassword_WeakPasswordRejected(t *testing.T) {
	called := false
	reset := &handlers.MockPasswordResetService{
		ResetPasswordFunc: func(context.Context, string, string, string) error {
			called = true
			return nil
		},
	}
	req := handlers.NewTestRequest(t, "POST", "/api/auth/reset-password", handlers.ResetPasswordRequest{
		Token:           "abc",
		NewPassword:     "weakpass",
		ConfirmPassword: "weakpass",
	})

	w := httptest.NewRecorder()
	newAuthHandler(nil, reset).ResetPassword(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error")
	assert.False(t, called)
}

func TestChangePassword(t *testing.T) {
	var gotID string
	mockAuth := &handlers.MockAuthService{
		ChangePasswordFunc: func(_ context.Context, accountID, oldPassword, newPassword, confirm string) error {
			gotID = accountID
			if oldPassword != "Str0ng@Pass" {
				return models.ErrIncorrectPassword
			}
			return nil
		},
	}
	handler := newAuthHandler(mockAuth, nil)

	body := handlers.ChangePasswordRequest{
		OldPassword:        "Str0ng@Pass",
		NewPassword:        "N3w@Passw0rd",
		ConfirmNewPassword: "N3w@Passw0rd",
	}

	w := httptest.NewRecorder()
	handler.ChangePassword(w, handlers.WithAuthContext(handlers.NewTestRequest(t, "PUT", "/api/auth/change-password", body), "acct_1", "asha@example.com"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acct_1", gotID)

	body.OldPassword = "Wr0ng@Pass"
	w = httptest.NewRecorder()
	handler.ChangePassword(w, handlers.WithAuthContext(handlers.NewTestRequest(t, "PUT", "/api/auth/change-password", body), "acct_1", "asha@example.com"))
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")

	w = httptest.NewRecorder()
	handler.ChangePassword(w, handlers.NewTestRequest(t, "PUT", "/api/auth/change-password", body))
	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

// ============================================================================
// Profile
// ============================================================================

func TestProfile_ReturnsPublicView(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		GetCurrentAccountFunc: func(_ context.Context, accountID string) (*models.Account, error) {
			return &models.Account{
				ID:         accountID,
				FirstName:  "Asha",
				LastName:   "Rao",
				Username:   "asha_0001",
				Email:      "asha@example.com",
				Role:       models.RoleAdmin,
				IsVerified: true,
			}, nil
		},
	}

	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "GET", "/api/auth/profile", nil), "acct_1", "asha@example.com")
	w := httptest.NewRecorder()
	newAuthHandler(mockAuth, nil).Profile(w, req)

	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.True(t, resp.Success)
	assert.Equal(t, "asha_0001", resp.Data["username"])
	assert.Equal(t, "acct_1", resp.Data["id"])
	assert.NotContains(t, w.Body.String(), "password")
}

func TestProfile_AccountGone(t *testing.T) {
	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "GET", "/api/auth/profile", nil), "acct_1", "asha@example.com")
	w := httptest.NewRecorder()

	newAuthHandler(nil, nil).Profile(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}
