package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the access token payload. It lives in models because
// services, middleware and ws all read it.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
