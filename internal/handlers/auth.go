package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/gamegate/internal/auth"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/BradenHooton/gamegate/internal/services"
	pkghttp "github.com/BradenHooton/gamegate/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.Account, error)
	VerifyEmail(ctx context.Context, email, otp string) error
	RequestLoginOTP(ctx context.Context, identifier string) error
	VerifyLoginOTP(ctx context.Context, identifier, code string) error
	LoginWithPassword(ctx context.Context, identifier, password string) (*services.LoginResult, error)
	GetCurrentAccount(ctx context.Context, accountID string) (*models.Account, error)
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword, confirm string) error
}

// PasswordResetServiceInterface defines the interface for the reset link flow
type PasswordResetServiceInterface interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword, confirm string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	resetService PasswordResetServiceInterface
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, resetService PasswordResetServiceInterface, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		resetService: resetService,
		logger:       logger,
	}
}

// Request DTOs

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,strongpassword"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type RequestOTPRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

type VerifyOTPRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	OTP        string `json:"otp" validate:"required"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"oldPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,strongpassword"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required"`
}

// LoginResponse is returned by the password step.
type LoginResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response itself and reports whether the caller may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if err := ValidateRequest(dst); err != nil {
		pkghttp.WriteValidationError(w, "Validation failed", err.Error())
		return false
	}
	return true
}

// writeServiceError maps service sentinels to HTTP responses.
func (h *AuthHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFoundOrUnverified):
		pkghttp.WriteBadRequest(w, "User not found or not verified")
	case errors.Is(err, models.ErrAlreadyVerified):
		pkghttp.WriteBadRequest(w, "User already verified")
	case errors.Is(err, models.ErrInvalidOrExpiredOTP):
		pkghttp.WriteBadRequest(w, "Invalid or expired OTP")
	case errors.Is(err, models.ErrInvalidOrExpiredToken):
		pkghttp.WriteBadRequest(w, "Invalid or expired token")
	case errors.Is(err, models.ErrPasswordMismatch):
		pkghttp.WriteBadRequest(w, "Passwords do not match")
	case errors.Is(err, models.ErrIncorrectPassword):
		pkghttp.WriteBadRequest(w, "Incorrect current password")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrOTPRequired):
		pkghttp.WriteForbidden(w, "OTP verification required first")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "User already exists")
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteTooManyRequests(w, "Account is temporarily locked. Try again later.")
	case errors.Is(err, models.ErrTooManyOTPAttempts):
		pkghttp.WriteTooManyRequests(w, "Too many failed OTP attempts")
	case errors.Is(err, models.ErrDeliveryFailed):
		h.logger.Error("email delivery failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Email could not be sent. Please try again later.")
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Register handles admin self-registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_, err := h.service.Register(r.Context(), services.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusCreated, "Registration successful. Please verify OTP within 5 minutes.", nil)
}

// VerifyEmail confirms the registration OTP
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Email, req.OTP); err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Email verified successfully. Welcome email sent.", nil)
}

// RequestLoginOTP is the first login step
func (h *AuthHandler) RequestLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req RequestOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RequestLoginOTP(r.Context(), req.Identifier); err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "OTP sent to registered email.", nil)
}

// VerifyLoginOTP is the second login step
func (h *AuthHandler) VerifyLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.VerifyLoginOTP(r.Context(), req.Identifier, req.OTP); err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "OTP Verified. Please proceed to enter password.", nil)
}

// LoginWithPassword is the final login step and returns the session token
func (h *AuthHandler) LoginWithPassword(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.LoginWithPassword(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Message:   "Login successful",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// ForgotPassword always answers with the same message
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.resetService.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "If the email exists, a reset link has been sent.", nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.resetService.ResetPassword(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Password reset successful. Please login.", nil)
}

// ChangePassword requires a session
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized")
		return
	}

	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), claims.AccountID, req.OldPassword, req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

// Profile returns the signed-in account
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized")
		return
	}

	account, err := h.service.GetCurrentAccount(r.Context(), claims.AccountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, "", account)
}
