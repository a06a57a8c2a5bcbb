/*
token.go - JWT issuing and validation

PURPOSE:
  Mints and validates the bearer tokens the API hands out at login. Claims
  carry just enough for role checks: user ID, email, role.

SCOPE:
  Demo-grade by design. HS256 with a shared secret from config, 24h
  expiry, no refresh tokens, no revocation list.

SEE ALSO:
  - api/auth.go: Middleware that calls ParseToken per request
*/
package directory

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campuscard/server/mealcard"
)

// Token validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the JWT claims embedded in every issued token.
type Claims struct {
	UserID mealcard.UserID `json:"userId"`
	Email  string          `json:"email"`
	Role   Role            `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates tokens with a shared HS256 secret.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), expiry: expiry}
}

// Issue signs a token for the given user.
func (ti *TokenIssuer) Issue(user *User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// ParseToken validates a token string and returns its claims.
func (ti *TokenIssuer) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return ti.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
