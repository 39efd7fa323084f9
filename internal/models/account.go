package models

import "time"

// RoleAdmin is the only role an account can hold.
const RoleAdmin = "admin"

// Account is the public view of an account. It is what every read path returns
// unless the caller explicitly asks for the security projection.
type Account struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"-"`
}

// AccountSecurity carries credential material and the login state machine
// fields. It must never be serialized into a response.
type AccountSecurity struct {
	Account

	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`

	// ExpireAt bounds the lifetime of an unverified registration.
	ExpireAt *time.Time `json:"-"`

	// Registration OTP
	OTPHash   string     `json:"-"`
	OTPExpiry *time.Time `json:"-"`

	// Login OTP and its single-use gate
	LoginOTPHash     string     `json:"-"`
	LoginOTPExpiry   *time.Time `json:"-"`
	LoginOTPAttempts int        `json:"-"`
	LoginOTPVerified bool       `json:"-"`

	// Password lockout
	LoginAttempts int        `json:"-"`
	LockUntil     *time.Time `json:"-"`
	LastLogin     *time.Time `json:"-"`

	// ResetPasswordToken holds the SHA-256 digest, never the raw token.
	ResetPasswordToken  string     `json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`
}

// IsLocked reports whether a password lock is in force at now.
func (a *AccountSecurity) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// IsExpired reports whether an unverified registration has outlived its window.
func (a *AccountSecurity) IsExpired(now time.Time) bool {
	return !a.IsVerified && a.ExpireAt != nil && !a.ExpireAt.After(now)
}

// ChangedPasswordAfter reports whether the password changed after t, which
// invalidates any session issued at t.
func (a *AccountSecurity) ChangedPasswordAfter(t time.Time) bool {
	return a.PasswordChangedAt != nil && a.PasswordChangedAt.After(t)
}

// LockoutState is the result of an atomic failed-password increment.
type LockoutState struct {
	LoginAttempts int
	LockUntil     *time.Time
}
