// Package utils holds small helpers shared across services: token signing
// and password hashing.
package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// AccessToken is a signed HS256 JWT and its expiry.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// Claims are the verified contents of an access token.
type Claims struct {
	UserID int64
	Role   string
}

// NewAccessToken signs an HS256 JWT carrying the user id as subject and the
// user's role (GUEST or HOST).
func NewAccessToken(secret string, userID int64, role string, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of a token and returns
// its claims. Any failure maps to UNAUTHORIZED.
func ParseAccessToken(secret, token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, apperr.New(apperr.CodeUnauthorized, "unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperr.New(apperr.CodeUnauthorized, "invalid claims")
	}
	sub, ok := mc["sub"].(float64)
	if !ok {
		return Claims{}, apperr.New(apperr.CodeUnauthorized, "missing subject")
	}
	role, _ := mc["role"].(string)
	return Claims{UserID: int64(sub), Role: role}, nil
}
