package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. A token issued for one purpose never verifies for another.
const (
	PurposeVerifyEmail   = "verify_email"
	PurposeResetPassword = "reset_password"
)

// TokenIssuer mints and verifies short-lived JWTs used in email links.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

type emailClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Issue creates a signed token binding a user ID to a purpose for ttl.
func (ti *TokenIssuer) Issue(userID, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := emailClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the user ID it was issued for. It fails
// if the signature is invalid, the token is expired, or the purpose differs.
func (ti *TokenIssuer) Verify(tokenString, purpose string) (string, error) {
	var claims emailClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Purpose != purpose {
		return "", fmt.Errorf("token purpose %q does not match %q", claims.Purpose, purpose)
	}
	return claims.Subject, nil
}
