package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the payload of a signed session token.
type SessionClaims struct {
	AccountID string `json:"id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}
