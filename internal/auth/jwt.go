// Package auth validates bearer tokens issued by the identity provider.
// Token minting lives with the provider; this service only verifies.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	id "kitclaim/pkg/domain"
	dErrors "kitclaim/pkg/domain-errors"
	authmw "kitclaim/pkg/platform/middleware/auth"
)

// tokenClaims is the wire shape of the provider's access tokens. The subject
// carries the user ID; email is the provider-verified address.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTValidator verifies HS256 access tokens against a shared signing key.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a bearer token, returning the identity it
// asserts. Every failure collapses to unauthorized; callers never learn which
// check failed.
func (v *JWTValidator) ValidateToken(tokenString string) (*authmw.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	return &authmw.Claims{
		UserID: userID,
		Email:  claims.Email,
		JTI:    claims.ID,
	}, nil
}
