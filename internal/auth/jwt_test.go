package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kitclaim/pkg/domain-errors"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, key string, claims tokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func validClaims(userID string) tokenClaims {
	return tokenClaims{
		Email: "buyer@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}
}

func TestValidateToken(t *testing.T) {
	validator := NewJWTValidator(testSigningKey)
	userID := uuid.NewString()

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, testSigningKey, validClaims(userID))

		claims, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID.String())
		assert.Equal(t, "buyer@example.com", claims.Email)
		assert.NotEmpty(t, claims.JTI)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := signToken(t, "some-other-key", validClaims(userID))

		_, err := validator.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims(userID)
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		token := signToken(t, testSigningKey, claims)

		_, err := validator.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := validator.ValidateToken("not-a-jwt")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signToken(t, testSigningKey, validClaims(""))

		_, err := validator.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("non-uuid subject", func(t *testing.T) {
		token := signToken(t, testSigningKey, validClaims("user-42"))

		_, err := validator.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
