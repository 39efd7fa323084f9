package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrNotFoundOrUnverified = errors.New("account not found or not verified")
	ErrAlreadyVerified      = errors.New("account is already verified")
	ErrAccountLocked        = errors.New("account is temporarily locked")

	// Credential errors
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrIncorrectPassword     = errors.New("current password is incorrect")
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrInvalidOrExpiredOTP   = errors.New("invalid or expired otp")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrTooManyOTPAttempts    = errors.New("too many otp attempts")
	ErrOTPRequired           = errors.New("otp verification required")

	// Game result errors
	ErrInvalidDate = errors.New("date must be in DD-MM-YYYY format")

	// Infrastructure errors
	ErrDeliveryFailed    = errors.New("email delivery failed")
	ErrHandleUnavailable = errors.New("could not allocate a unique username")
)
