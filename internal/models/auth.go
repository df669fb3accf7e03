package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims carries the identity asserted by the external auth provider.
type JWTClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
